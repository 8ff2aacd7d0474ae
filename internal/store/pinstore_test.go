package store

import (
	"path/filepath"
	"testing"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

func TestPinStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PinStoreName)

	s, err := LoadPinStore(path)
	if err != nil {
		t.Fatalf("LoadPinStore: %v", err)
	}

	lib := model.ManagedDependency{
		PackageRef: model.PackageReference{Identity: "github.com/lib/lib", Location: "https://github.com/lib/lib"},
		State: model.ManagedDependencyState{
			Kind:     uint8(model.ManagedSourceControlCheckout),
			Checkout: model.VersionCheckout(gpsmodel.NewVersion("1.2.0"), gpsmodel.Revision("abc123")),
		},
	}
	s.Add(lib)

	util := model.ManagedDependency{
		PackageRef: model.PackageReference{Identity: "github.com/util/util", Location: "github.com/util/util"},
		State: model.ManagedDependencyState{
			Kind:    uint8(model.ManagedRegistryDownload),
			Version: gpsmodel.NewVersion("2.3.1"),
		},
	}
	s.Add(util)

	if err := s.Save("deadbeef", "1.0"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadPinStore(path)
	if err != nil {
		t.Fatalf("reload LoadPinStore: %v", err)
	}

	if reloaded.OriginHash != "deadbeef" {
		t.Fatalf("origin hash not preserved: got %q", reloaded.OriginHash)
	}

	pins := reloaded.Pins()
	if len(pins) != 2 {
		t.Fatalf("expected 2 pins, got %d", len(pins))
	}

	got, ok := reloaded.Get("github.com/lib/lib")
	if !ok {
		t.Fatal("expected lib pin to round-trip")
	}
	if got.State.Kind != model.PinVersion || got.State.Revision != "abc123" {
		t.Fatalf("lib pin state mismatch: %+v", got.State)
	}
}

func TestPinStoreAddSkipsUnpinnableStates(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadPinStore(filepath.Join(dir, PinStoreName))
	if err != nil {
		t.Fatal(err)
	}

	edited := model.ManagedDependency{
		PackageRef: model.PackageReference{Identity: "github.com/x/y"},
		State:      model.ManagedDependencyState{Kind: uint8(model.ManagedEdited), UnmanagedPath: "/local/x"},
	}
	s.Add(edited)

	if _, ok := s.Get("github.com/x/y"); ok {
		t.Fatal("edited dependency should not be pinnable")
	}
}

func TestPinStoreGetComparingLocationDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadPinStore(filepath.Join(dir, PinStoreName))
	if err != nil {
		t.Fatal(err)
	}

	s.Add(model.ManagedDependency{
		PackageRef: model.PackageReference{Identity: "github.com/lib/lib", Location: "https://old.example.com/lib"},
		State: model.ManagedDependencyState{
			Kind:    uint8(model.ManagedRegistryDownload),
			Version: gpsmodel.NewVersion("1.0.0"),
		},
	})

	_, ok := s.GetComparingLocation(model.PackageReference{Identity: "github.com/lib/lib", Location: "https://new.example.com/lib"})
	if ok {
		t.Fatal("GetComparingLocation should not match a drifted location")
	}

	_, ok = s.GetComparingLocation(model.PackageReference{Identity: "github.com/lib/lib", Location: "https://old.example.com/lib"})
	if !ok {
		t.Fatal("GetComparingLocation should match the original location")
	}
}
