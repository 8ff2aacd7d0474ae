package checkout

import (
	"sync"
	"testing"

	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	deps map[model.PackageIdentity]model.ManagedDependency
}

func newMemStore() *memStore { return &memStore{deps: make(map[model.PackageIdentity]model.ManagedDependency)} }

func (s *memStore) Put(dep model.ManagedDependency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[dep.Identity()] = dep
}

func (s *memStore) Delete(id model.PackageIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deps, id)
}

func (s *memStore) Get(id model.PackageIdentity) (model.ManagedDependency, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deps[id]
	return d, ok
}

type fakeContainer struct {
	kind container.ContainerKind
	tag  *container.Tag
}

func (c *fakeContainer) Kind() container.ContainerKind { return c.kind }
func (c *fakeContainer) GetTag(v gpsmodel.Version) (*container.Tag, error) { return c.tag, nil }
func (c *fakeContainer) GetRevision(id string) (gpsmodel.Revision, error)  { return gpsmodel.Revision(id), nil }
func (c *fakeContainer) CheckIntegrity(v gpsmodel.Version, rev gpsmodel.Revision) error { return nil }
func (c *fakeContainer) Checkout(dir string, state model.CheckoutState) error           { return nil }
func (c *fakeContainer) Retrieve(dir string, v gpsmodel.Version) (string, error) {
	return dir, nil
}
func (c *fakeContainer) Download(dir string, v gpsmodel.Version) error { return nil }

type fakeProvider struct {
	kind container.ContainerKind
}

func (p fakeProvider) GetContainer(ref model.PackageReference, strategy container.UpdateStrategy, scope container.Scope) (container.Container, error) {
	return &fakeContainer{kind: p.kind, tag: &container.Tag{Name: "v1.0.0", Revision: "rev1"}}, nil
}

func ref(id string) model.PackageReference {
	return model.PackageReference{Identity: model.PackageIdentity(id), Location: id}
}

func TestApplyInstallsVersionedSourceControlPackage(t *testing.T) {
	store := newMemStore()
	exec := New(store, fakeProvider{kind: container.KindSourceControl}, func(id model.PackageIdentity) string { return "/deps/" + string(id) }, nil)

	entries := []model.ReconcileEntry{
		{Ref: ref("lib"), Change: model.PackageStateChange{Kind: model.ChangeAdded, Requirement: model.Requirement{Kind: model.RequireVersion, Version: gpsmodel.NewVersion("1.0.0")}}},
	}

	if errs := exec.Apply(entries); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	dep, ok := store.Get("lib")
	if !ok {
		t.Fatal("expected lib to be installed")
	}
	if model.ManagedKind(dep.State.Kind) != model.ManagedSourceControlCheckout {
		t.Fatalf("expected sourceControlCheckout, got %v", model.ManagedKind(dep.State.Kind))
	}
}

func TestApplyRemovalsCompleteBeforeInstalls(t *testing.T) {
	store := newMemStore()
	store.Put(model.ManagedDependency{PackageRef: ref("gone"), State: model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload)}})

	exec := New(store, fakeProvider{kind: container.KindRegistry}, func(id model.PackageIdentity) string { return "/deps/" + string(id) }, nil)

	entries := []model.ReconcileEntry{
		{Ref: ref("gone"), Change: model.PackageStateChange{Kind: model.ChangeRemoved}},
		{Ref: ref("new"), Change: model.PackageStateChange{Kind: model.ChangeAdded, Requirement: model.Requirement{Kind: model.RequireVersion, Version: gpsmodel.NewVersion("2.0.0")}}},
	}

	if errs := exec.Apply(entries); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if _, ok := store.Get("gone"); ok {
		t.Fatal("expected gone to be removed")
	}
	if _, ok := store.Get("new"); !ok {
		t.Fatal("expected new to be installed")
	}
}

func TestApplyInstallIsIdempotent(t *testing.T) {
	store := newMemStore()
	target := model.VersionCheckout(gpsmodel.NewVersion("1.0.0"), "rev1")
	store.Put(model.ManagedDependency{PackageRef: ref("lib"), State: model.ManagedDependencyState{Kind: uint8(model.ManagedSourceControlCheckout), Checkout: target}})

	calls := 0
	provider := countingProvider{inner: fakeProvider{kind: container.KindSourceControl}, calls: &calls}
	exec := New(store, provider, func(id model.PackageIdentity) string { return "/deps/" + string(id) }, nil)

	entries := []model.ReconcileEntry{
		{Ref: ref("lib"), Change: model.PackageStateChange{Kind: model.ChangeUpdated, Requirement: model.Requirement{Kind: model.RequireVersion, Version: gpsmodel.NewVersion("1.0.0")}}},
	}

	if errs := exec.Apply(entries); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if calls != 0 {
		t.Fatalf("expected no container acquisition for an already-met target, got %d calls", calls)
	}
}

type countingProvider struct {
	inner container.Provider
	calls *int
}

func (p countingProvider) GetContainer(ref model.PackageReference, strategy container.UpdateStrategy, scope container.Scope) (container.Container, error) {
	*p.calls++
	return p.inner.GetContainer(ref, strategy, scope)
}
