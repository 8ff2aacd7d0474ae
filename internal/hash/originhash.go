// Package hash computes the origin hash (C8): a deterministic SHA-256
// fingerprint over root manifests and declared top-level dependency
// locations, used only as a cheap staleness guard, never for security.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Compute concatenates the raw bytes of each root manifest (in the order
// roots are listed) followed by each top-level dependency's location
// string, then hashes the result. Both orderings are caller-supplied and
// must already reflect the declared order (§4.1: "order-sensitive in the
// declared order").
func Compute(rootManifestBytes [][]byte, dependencyLocations []string) string {
	h := sha256.New()
	for _, b := range rootManifestBytes {
		h.Write(b)
	}
	for _, loc := range dependencyLocations {
		h.Write([]byte(loc))
	}
	return hex.EncodeToString(h.Sum(nil))
}
