package workspace

import (
	"testing"

	"github.com/solvepkg/wspkg/internal/checkout"
	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/feedback"
	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/manifest"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// fakePinStore and fakeManagedStore are minimal in-memory doubles for the
// two durable stores, letting orchestrator tests run without touching disk.
type fakePinStore struct {
	pins       map[model.PackageIdentity]model.ResolvedPackage
	originHash string
	savedCalls int
}

func newFakePinStore() *fakePinStore {
	return &fakePinStore{pins: make(map[model.PackageIdentity]model.ResolvedPackage)}
}

func (s *fakePinStore) Pins() []model.ResolvedPackage {
	out := make([]model.ResolvedPackage, 0, len(s.pins))
	for _, p := range s.pins {
		out = append(out, p)
	}
	return out
}
func (s *fakePinStore) Get(id model.PackageIdentity) (model.ResolvedPackage, bool) {
	p, ok := s.pins[id]
	return p, ok
}
func (s *fakePinStore) GetComparingLocation(ref model.PackageReference) (model.ResolvedPackage, bool) {
	p, ok := s.pins[ref.Identity]
	if !ok || p.PackageRef.Location != ref.Location {
		return model.ResolvedPackage{}, false
	}
	return p, true
}
func (s *fakePinStore) Add(dep model.ManagedDependency) {
	var ps model.PinState
	switch model.ManagedKind(dep.State.Kind) {
	case model.ManagedSourceControlCheckout:
		ps = model.PinState{Kind: model.PinVersion, Version: dep.State.Checkout.Version, Revision: dep.State.Checkout.Revision}
	default:
		return
	}
	s.pins[dep.Identity()] = model.ResolvedPackage{PackageRef: dep.PackageRef, State: ps}
}
func (s *fakePinStore) Remove(id model.PackageIdentity) { delete(s.pins, id) }
func (s *fakePinStore) Save(originHash, minimumToolsVersion string) error {
	s.originHash = originHash
	s.savedCalls++
	return nil
}
func (s *fakePinStore) CurrentOriginHash() string { return s.originHash }

type fakeManagedStore struct {
	deps map[model.PackageIdentity]model.ManagedDependency
}

func newFakeManagedStore() *fakeManagedStore {
	return &fakeManagedStore{deps: make(map[model.PackageIdentity]model.ManagedDependency)}
}

func (s *fakeManagedStore) Put(dep model.ManagedDependency)          { s.deps[dep.Identity()] = dep }
func (s *fakeManagedStore) Delete(id model.PackageIdentity)          { delete(s.deps, id) }
func (s *fakeManagedStore) Get(id model.PackageIdentity) (model.ManagedDependency, bool) {
	d, ok := s.deps[id]
	return d, ok
}
func (s *fakeManagedStore) GetComparingLocation(ref model.PackageReference) (model.ManagedDependency, bool) {
	d, ok := s.deps[ref.Identity]
	if !ok || d.PackageRef.Location != ref.Location {
		return model.ManagedDependency{}, false
	}
	return d, true
}
func (s *fakeManagedStore) All() []model.ManagedDependency {
	out := make([]model.ManagedDependency, 0, len(s.deps))
	for _, d := range s.deps {
		out = append(out, d)
	}
	return out
}
func (s *fakeManagedStore) Save() error { return nil }

// fakeProvider always returns a container claiming a fixed revision,
// mirroring how the precomputer's callers never need real network access.
type fakeProvider struct{ revision gpsmodel.Revision }

func (p fakeProvider) GetContainer(ref model.PackageReference, strategy container.UpdateStrategy, scope container.Scope) (container.Container, error) {
	return fakeContainer{revision: p.revision}, nil
}

type fakeContainer struct{ revision gpsmodel.Revision }

func (c fakeContainer) Kind() container.ContainerKind { return container.KindSourceControl }
func (c fakeContainer) GetTag(v gpsmodel.Version) (*container.Tag, error) {
	return &container.Tag{Name: v.String(), Revision: c.revision}, nil
}
func (c fakeContainer) GetRevision(identifier string) (gpsmodel.Revision, error) { return c.revision, nil }
func (c fakeContainer) CheckIntegrity(gpsmodel.Version, gpsmodel.Revision) error { return nil }
func (c fakeContainer) Checkout(dir string, state model.CheckoutState) error     { return nil }
func (c fakeContainer) Retrieve(dir string, v gpsmodel.Version) (string, error)  { return dir, nil }
func (c fakeContainer) Download(dir string, v gpsmodel.Version) error            { return nil }

// fixedSolver returns a preconfigured Result regardless of its Params,
// letting tests drive Update/Resolve without a real constraint search.
type fixedSolver struct {
	result resolver.Result
	err    error
}

func (s fixedSolver) Solve(params resolver.Params) (resolver.Result, error) { return s.result, s.err }

func testOrchestrator(t *testing.T, loader manifest.Loader, pins *fakePinStore, managed *fakeManagedStore, solver resolver.Solver) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		Ctx:      &Ctx{RootDir: "/root", Config: DefaultConfig(), Loggers: &Loggers{}},
		Loader:   loader,
		Pins:     pins,
		Managed:  managed,
		Provider: fakeProvider{revision: gpsmodel.Revision("abc123")},
		Solver:   solver,
		Paths:    checkout.PathResolver(func(id model.PackageIdentity) string { return "/root/.ws/" + string(id) }),
		Feedback: feedback.NewSink(nil),
	}
}

func TestUpdateAppliesAddedBindingAndSavesPins(t *testing.T) {
	loader := manifest.NewMemoryLoader()
	loader.Roots["/root"] = manifest.Manifest{Identity: "root", Raw: []byte("root")}
	loader.Graph = manifest.DependencyManifests{
		RequiredPackages: []model.PackageReference{{Identity: "foo"}},
	}

	pins := newFakePinStore()
	managed := newFakeManagedStore()
	solver := fixedSolver{result: resolver.Result{Bindings: []model.DependencyResolverBinding{
		{Package: model.PackageReference{Identity: "foo"}, BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("1.0.0")}},
	}}}

	o := testOrchestrator(t, loader, pins, managed, solver)

	result, err := o.Update(UpdateOptions{RootPaths: []string{"/root"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(result.Changes) != 1 || result.Changes[0].Change.Kind != model.ChangeAdded {
		t.Fatalf("expected one added change, got %+v", result.Changes)
	}
	if pins.savedCalls != 1 {
		t.Fatalf("expected pin store to be saved once, got %d", pins.savedCalls)
	}
	if _, ok := managed.Get("foo"); !ok {
		t.Fatalf("expected foo to be materialized into the managed store")
	}
}

func TestUpdateDryRunDoesNotMutateStores(t *testing.T) {
	loader := manifest.NewMemoryLoader()
	loader.Roots["/root"] = manifest.Manifest{Identity: "root", Raw: []byte("root")}
	loader.Graph = manifest.DependencyManifests{RequiredPackages: []model.PackageReference{{Identity: "foo"}}}

	pins := newFakePinStore()
	managed := newFakeManagedStore()
	solver := fixedSolver{result: resolver.Result{Bindings: []model.DependencyResolverBinding{
		{Package: model.PackageReference{Identity: "foo"}, BoundVersion: model.BoundVersion{Kind: model.BoundVersion_, Version: gpsmodel.NewVersion("1.0.0")}},
	}}}
	o := testOrchestrator(t, loader, pins, managed, solver)

	result, err := o.Update(UpdateOptions{RootPaths: []string{"/root"}, DryRun: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(result.DryRunReport) == 0 {
		t.Fatalf("expected a non-empty dry-run report")
	}
	if pins.savedCalls != 0 {
		t.Fatalf("dry run must not save the pin store")
	}
	if _, ok := managed.Get("foo"); ok {
		t.Fatalf("dry run must not materialize any package")
	}
}

func TestUpdateFailsMissingPackagesInvariant(t *testing.T) {
	loader := manifest.NewMemoryLoader()
	loader.Roots["/root"] = manifest.Manifest{Identity: "root", Raw: []byte("root")}
	// RequiredPackages names a package the solver never binds, so after
	// applying the empty change set the invariant check must fail.
	loader.Graph = manifest.DependencyManifests{RequiredPackages: []model.PackageReference{{Identity: "bar"}}}

	pins := newFakePinStore()
	managed := newFakeManagedStore()
	solver := fixedSolver{result: resolver.Result{}}
	o := testOrchestrator(t, loader, pins, managed, solver)

	_, err := o.Update(UpdateOptions{RootPaths: []string{"/root"}})
	if err == nil {
		t.Fatalf("expected missing-packages invariant failure")
	}
	var fe *FatalError
	if !asFatalError(err, &fe) {
		t.Fatalf("expected *FatalError, got %T: %v", err, err)
	}
	if fe.Kind != ErrorInconsistency {
		t.Fatalf("expected ErrorInconsistency, got %v", fe.Kind)
	}
}

func TestResolveFromLockReportsNotRequiredWhenPinsSatisfyRoot(t *testing.T) {
	loader := manifest.NewMemoryLoader()
	loader.Roots["/root"] = manifest.Manifest{Identity: "root", Raw: []byte("root")}
	loader.Graph = manifest.DependencyManifests{}

	pins := newFakePinStore()
	managed := newFakeManagedStore()
	solver := fixedSolver{result: resolver.Result{}}
	o := testOrchestrator(t, loader, pins, managed, solver)

	result, err := o.ResolveFromLock([]string{"/root"})
	if err != nil {
		t.Fatalf("ResolveFromLock: %v", err)
	}
	if result.Precomputation.RequiresResolution() {
		t.Fatalf("expected no resolution required, got %+v", result.Precomputation)
	}
}

func TestStatusReportsHashMismatchWhenNeverSaved(t *testing.T) {
	loader := manifest.NewMemoryLoader()
	loader.Roots["/root"] = manifest.Manifest{Identity: "root", Raw: []byte("root")}

	pins := newFakePinStore()
	managed := newFakeManagedStore()
	managed.Put(model.ManagedDependency{
		PackageRef: model.PackageReference{Identity: "foo"},
		State: model.ManagedDependencyState{
			Kind:     uint8(model.ManagedSourceControlCheckout),
			Checkout: model.VersionCheckout(gpsmodel.NewVersion("1.0.0"), gpsmodel.Revision("abc")),
		},
	})
	o := testOrchestrator(t, loader, pins, managed, fixedSolver{})

	report, err := o.Status([]string{"/root"})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("expected one status entry, got %d", len(report.Entries))
	}
	if !report.Entries[0].HashMismatch {
		t.Fatalf("expected hash mismatch before any save")
	}
}

// asFatalError is errors.As without importing pkg/errors' own errors.As
// wrapper in every test; *FatalError never wraps another error so a direct
// type assertion suffices here.
func asFatalError(err error, target **FatalError) bool {
	fe, ok := err.(*FatalError)
	if !ok {
		return false
	}
	*target = fe
	return true
}
