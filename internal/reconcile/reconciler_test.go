package reconcile

import (
	"testing"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

func ref(id string) model.PackageReference {
	return model.PackageReference{Identity: model.PackageIdentity(id), Location: id}
}

func TestReconcileCleanResolveTwoDeps(t *testing.T) {
	bindings := []model.DependencyResolverBinding{
		{Package: ref("lib"), BoundVersion: model.BoundVersion{Kind: model.BoundRevision, Revision: "rev1"}},
		{Package: ref("util"), BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("2.3.1")}},
	}

	res, err := Reconcile(nil, bindings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(res.Changes))
	}
	for _, c := range res.Changes {
		if c.Change.Kind != model.ChangeAdded {
			t.Errorf("expected added for %s, got %s", c.Ref.Identity, c.Change.Kind)
		}
	}
}

func TestReconcileUnchangedWhenVersionMatches(t *testing.T) {
	managed := []model.ManagedDependency{
		{
			PackageRef: ref("util"),
			State: model.ManagedDependencyState{
				Kind:    uint8(model.ManagedRegistryDownload),
				Version: gpsmodel.NewVersion("2.3.1"),
			},
		},
	}
	bindings := []model.DependencyResolverBinding{
		{Package: ref("util"), BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("2.3.1")}},
	}

	res, err := Reconcile(managed, bindings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Change.Kind != model.ChangeUnchanged {
		t.Fatalf("expected unchanged, got %+v", res.Changes)
	}
}

func TestReconcileRemovedForUntouchedManaged(t *testing.T) {
	managed := []model.ManagedDependency{
		{PackageRef: ref("gone"), State: model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload), Version: gpsmodel.NewVersion("1.0.0")}},
	}

	res, err := Reconcile(managed, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Change.Kind != model.ChangeRemoved {
		t.Fatalf("expected removed, got %+v", res.Changes)
	}
}

func TestReconcileNoDuplicatePackages(t *testing.T) {
	managed := []model.ManagedDependency{
		{PackageRef: ref("lib"), State: model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload), Version: gpsmodel.NewVersion("1.0.0")}},
	}
	bindings := []model.DependencyResolverBinding{
		{Package: ref("lib"), BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("1.1.0")}},
	}

	res, err := Reconcile(managed, bindings, Options{})
	if err != nil {
		t.Fatal(err)
	}

	seen := map[model.PackageIdentity]int{}
	for _, c := range res.Changes {
		seen[c.Ref.Identity]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("package %s appeared %d times, expected 1", id, n)
		}
	}
}

type stubRevisions struct{ rev gpsmodel.Revision }

func (s stubRevisions) Revision(ref model.PackageReference, branchOrTag string) (gpsmodel.Revision, error) {
	return s.rev, nil
}

type stubPins struct{ pins map[model.PackageIdentity]model.ResolvedPackage }

func (s stubPins) Get(id model.PackageIdentity) (model.ResolvedPackage, bool) {
	p, ok := s.pins[id]
	return p, ok
}

func TestReconcileBranchFreeze(t *testing.T) {
	managed := []model.ManagedDependency{
		{
			PackageRef: ref("lib"),
			State: model.ManagedDependencyState{
				Kind:     uint8(model.ManagedSourceControlCheckout),
				Checkout: model.BranchCheckout("main", "revA"),
			},
		},
	}
	pins := stubPins{pins: map[model.PackageIdentity]model.ResolvedPackage{
		"lib": {PackageRef: ref("lib"), State: model.PinState{Kind: model.PinBranch, Branch: "main", Revision: "revA"}},
	}}
	bindings := []model.DependencyResolverBinding{
		{Package: ref("lib"), BoundVersion: model.BoundVersion{Kind: model.BoundRevision, Branch: "main", Revision: "revB"}},
	}

	// updateBranches=false: upstream moved to revB, but we must keep revA.
	res, err := Reconcile(managed, bindings, Options{
		UpdateBranches: false,
		Revisions:      stubRevisions{rev: "revB"},
		Pins:           pins,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Change.Kind != model.ChangeUnchanged {
		t.Fatalf("expected branch freeze to keep state unchanged, got %+v", res.Changes)
	}

	// updateBranches=true: should now move to revB.
	res2, err := Reconcile(managed, bindings, Options{
		UpdateBranches: true,
		Revisions:      stubRevisions{rev: "revB"},
		Pins:           pins,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res2.Changes) != 1 || res2.Changes[0].Change.Kind != model.ChangeUpdated {
		t.Fatalf("expected update to revB, got %+v", res2.Changes)
	}
	if res2.Changes[0].Change.Requirement.Revision != "revB" {
		t.Fatalf("expected revision revB, got %s", res2.Changes[0].Change.Requirement.Revision)
	}
}

func TestReconcileEditedPreservedAcrossResolution(t *testing.T) {
	original := model.ManagedDependency{
		PackageRef: ref("lib"),
		State:      model.ManagedDependencyState{Kind: uint8(model.ManagedSourceControlCheckout), Checkout: model.RevisionCheckout("revX")},
	}
	managed := []model.ManagedDependency{
		{
			PackageRef: ref("lib"),
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedEdited), BasedOn: &original, UnmanagedPath: "/local/lib"},
		},
	}
	bindings := []model.DependencyResolverBinding{
		{Package: ref("lib"), BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("9.9.9")}},
	}

	res, err := Reconcile(managed, bindings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Change.Kind != model.ChangeUnchanged {
		t.Fatalf("expected edited dependency to stay unchanged, got %+v", res.Changes)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected a conflict warning since bound version != checkout, got %d", len(res.Warnings))
	}
}

func TestReconcileIllegalUnversionedTransition(t *testing.T) {
	managed := []model.ManagedDependency{
		{PackageRef: ref("lib"), State: model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload), Version: gpsmodel.NewVersion("1.0.0")}},
	}
	bindings := []model.DependencyResolverBinding{
		{Package: ref("lib"), BoundVersion: model.BoundVersion{Kind: model.BoundUnversioned}},
	}

	if _, err := Reconcile(managed, bindings, Options{}); err == nil {
		t.Fatal("expected an error for registry->unversioned transition")
	}
}
