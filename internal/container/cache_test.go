package container

import (
	"path/filepath"
	"testing"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
)

func TestVersionCacheTagRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenVersionCache(filepath.Join(dir, "cache.db"), 1)
	if err != nil {
		t.Fatalf("OpenVersionCache: %v", err)
	}
	defer c.Close()

	v := gpsmodel.NewVersion("1.2.0")
	if _, ok := c.GetTag("github.com/lib/lib", v); ok {
		t.Fatal("expected no cached tag before Put")
	}

	c.PutTag("github.com/lib/lib", v, &Tag{Name: "v1.2.0", Revision: "abc123"})

	got, ok := c.GetTag("github.com/lib/lib", v)
	if !ok {
		t.Fatal("expected cached tag after Put")
	}
	if got.Name != "v1.2.0" || got.Revision != "abc123" {
		t.Fatalf("unexpected cached tag: %+v", got)
	}
}

func TestVersionCacheRevisionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenVersionCache(filepath.Join(dir, "cache.db"), 1)
	if err != nil {
		t.Fatalf("OpenVersionCache: %v", err)
	}
	defer c.Close()

	c.PutRevision("github.com/lib/lib", "main", "deadbeef")

	rev, ok := c.GetRevision("github.com/lib/lib", "main")
	if !ok || rev != "deadbeef" {
		t.Fatalf("expected cached revision deadbeef, got %q ok=%v", rev, ok)
	}
}

func TestVersionCacheEpochInvalidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	c1, err := OpenVersionCache(path, 1)
	if err != nil {
		t.Fatalf("OpenVersionCache: %v", err)
	}
	c1.PutRevision("github.com/lib/lib", "main", "oldrev")
	c1.Close()

	c2, err := OpenVersionCache(path, 2)
	if err != nil {
		t.Fatalf("reopen OpenVersionCache: %v", err)
	}
	defer c2.Close()

	if _, ok := c2.GetRevision("github.com/lib/lib", "main"); ok {
		t.Fatal("entries written under an older epoch must not be visible after a bump")
	}
}
