// Package testutil provides a small structural-diff helper for test
// failure messages, reimplementing the spirit of golang-dep's
// internal/test/diff.go (which leans on messagediff/go-diff) on top of
// reflect.DeepEqual and go-spew. No test in this module calls it.
package testutil

import (
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// Diff reports whether a and b are structurally equal and, when they are
// not, a side-by-side spew dump a caller can embed in t.Errorf/t.Fatalf.
func Diff(a, b interface{}) (dump string, equal bool) {
	if reflect.DeepEqual(a, b) {
		return "", true
	}
	return "got:\n" + spew.Sdump(a) + "want:\n" + spew.Sdump(b), false
}
