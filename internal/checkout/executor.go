// Package checkout implements the Checkout Executor (C7, §4.6): it takes
// the reconciler's ordered change list and applies it in two strict
// phases — removals, then installs — each fanned out in parallel across
// packages via plain goroutines + sync.WaitGroup, mirroring the
// concurrency style golang-dep itself uses in its test harness
// (manager_test.go) rather than reaching for a task-group library.
package checkout

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/fs"
	"github.com/solvepkg/wspkg/internal/model"
)

// Store is the subset of the managed-dependency store the executor needs.
// Mutations must be safe for concurrent calls from Phase B's parallel
// install tasks (§5 "store mutation under async").
type Store interface {
	Put(dep model.ManagedDependency)
	Delete(id model.PackageIdentity)
	Get(id model.PackageIdentity) (model.ManagedDependency, bool)
}

// PathResolver maps a package identity to the on-disk directory its
// managed dependency is (or will be) materialized at.
type PathResolver func(id model.PackageIdentity) string

// TaskError pairs a package identity with the error encountered acting on
// it, so one bad package can be logged without aborting its siblings
// (§5 "failures are logged per-task but do not cancel siblings").
type TaskError struct {
	Identity model.PackageIdentity
	Err      error
}

func (e TaskError) Error() string { return string(e.Identity) + ": " + e.Err.Error() }

// Executor applies reconciler output against a Store and a container
// Provider.
type Executor struct {
	Store    Store
	Provider container.Provider
	Paths    PathResolver
	// Scope is threaded through every GetContainer call the executor makes,
	// so an external cancellation signal can abort an in-flight checkout
	// (§5). May be nil, in which case calls are made uncancellably.
	Scope container.Scope
}

func New(store Store, provider container.Provider, paths PathResolver, scope container.Scope) *Executor {
	return &Executor{Store: store, Provider: provider, Paths: paths, Scope: scope}
}

// Apply runs Phase A (removals) to completion before starting Phase B
// (installs/updates), per §4.6. It returns every per-task failure
// encountered in either phase; a non-empty return does not mean the whole
// apply aborted — siblings still ran to completion.
func (e *Executor) Apply(entries []model.ReconcileEntry) []TaskError {
	var removals, installs []model.ReconcileEntry
	for _, entry := range entries {
		if entry.Change.Kind == model.ChangeRemoved {
			removals = append(removals, entry)
		} else if entry.Change.Kind != model.ChangeUnchanged {
			installs = append(installs, entry)
		}
	}

	errs := e.runPhase(removals, e.removeOne)
	// Phase B must not start until every Phase A task has completed, so
	// identity slots are free (§4.6).
	errs = append(errs, e.runPhase(installs, e.installOne)...)
	return errs
}

func (e *Executor) runPhase(entries []model.ReconcileEntry, task func(model.ReconcileEntry) error) []TaskError {
	if len(entries) == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []TaskError
	var wg sync.WaitGroup
	wg.Add(len(entries))

	for _, entry := range entries {
		go func(entry model.ReconcileEntry) {
			defer wg.Done()
			if err := task(entry); err != nil {
				mu.Lock()
				errs = append(errs, TaskError{Identity: entry.Ref.Identity, Err: err})
				mu.Unlock()
			}
		}(entry)
	}

	wg.Wait()
	return errs
}

func (e *Executor) removeOne(entry model.ReconcileEntry) error {
	dir := e.Paths(entry.Ref.Identity)
	if err := fs.RemoveDependencyDir(dir); err != nil {
		return errors.Wrapf(err, "remove managed dependency dir for %s", entry.Ref.Identity)
	}
	e.Store.Delete(entry.Ref.Identity)
	return nil
}

func (e *Executor) installOne(entry model.ReconcileEntry) error {
	if existing, ok := e.Store.Get(entry.Ref.Identity); ok && targetAlreadyMet(existing, entry.Change.Requirement) {
		return nil // idempotent: already at the target state
	}

	dir := e.Paths(entry.Ref.Identity)

	switch entry.Change.Requirement.Kind {
	case model.RequireUnversioned:
		e.Store.Put(model.ManagedDependency{
			PackageRef: entry.Ref,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedFileSystem), Path: dir},
		})
		return nil

	case model.RequireRevision:
		c, err := e.Provider.GetContainer(entry.Ref, container.IfNeeded(entry.Change.Requirement.Revision), e.Scope)
		if err != nil {
			return errors.Wrapf(err, "acquire container for %s", entry.Ref.Identity)
		}

		var target model.CheckoutState
		if entry.Change.Requirement.Branch != "" {
			target = model.BranchCheckout(entry.Change.Requirement.Branch, entry.Change.Requirement.Revision)
		} else {
			target = model.RevisionCheckout(entry.Change.Requirement.Revision)
		}
		if err := c.Checkout(dir, target); err != nil {
			return errors.Wrapf(err, "checkout %s", entry.Ref.Identity)
		}
		e.Store.Put(model.ManagedDependency{
			PackageRef: entry.Ref,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedSourceControlCheckout), Checkout: target},
		})
		return nil

	case model.RequireVersion:
		return e.installVersion(entry, dir)

	default:
		return errors.Errorf("unrecognized requirement kind for %s", entry.Ref.Identity)
	}
}

func (e *Executor) installVersion(entry model.ReconcileEntry, dir string) error {
	v := entry.Change.Requirement.Version

	c, err := e.Provider.GetContainer(entry.Ref, container.Always(), e.Scope)
	if err != nil {
		return errors.Wrapf(err, "acquire container for %s", entry.Ref.Identity)
	}

	switch c.Kind() {
	case container.KindSourceControl:
		tag, err := c.GetTag(v)
		if err != nil {
			return errors.Wrapf(err, "resolve tag for %s@%s", entry.Ref.Identity, v)
		}
		if tag == nil {
			return errors.Errorf("no tag found for %s@%s", entry.Ref.Identity, v)
		}
		if err := c.CheckIntegrity(v, tag.Revision); err != nil {
			return errors.Wrapf(err, "integrity check for %s@%s", entry.Ref.Identity, v)
		}
		target := model.VersionCheckout(v, tag.Revision)
		if err := c.Checkout(dir, target); err != nil {
			return errors.Wrapf(err, "checkout %s@%s", entry.Ref.Identity, v)
		}
		e.Store.Put(model.ManagedDependency{
			PackageRef: entry.Ref,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedSourceControlCheckout), Checkout: target},
		})
		return nil

	case container.KindRegistry:
		if err := c.Download(dir, v); err != nil {
			return errors.Wrapf(err, "download %s@%s", entry.Ref.Identity, v)
		}
		e.Store.Put(model.ManagedDependency{
			PackageRef: entry.Ref,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload), Version: v},
		})
		return nil

	default: // KindCustom
		path, err := c.Retrieve(dir, v)
		if err != nil {
			return errors.Wrapf(err, "retrieve %s@%s", entry.Ref.Identity, v)
		}
		e.Store.Put(model.ManagedDependency{
			PackageRef: entry.Ref,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedCustom), Version: v, Path: path},
		})
		return nil
	}
}

func targetAlreadyMet(existing model.ManagedDependency, req model.Requirement) bool {
	switch req.Kind {
	case model.RequireUnversioned:
		return model.ManagedKind(existing.State.Kind) == model.ManagedFileSystem
	case model.RequireRevision:
		if model.ManagedKind(existing.State.Kind) != model.ManagedSourceControlCheckout {
			return false
		}
		var target model.CheckoutState
		if req.Branch != "" {
			target = model.BranchCheckout(req.Branch, req.Revision)
		} else {
			target = model.RevisionCheckout(req.Revision)
		}
		return existing.State.Checkout.Equal(target)
	case model.RequireVersion:
		switch model.ManagedKind(existing.State.Kind) {
		case model.ManagedSourceControlCheckout:
			return existing.State.Checkout.Kind == model.CheckoutVersion && existing.State.Checkout.Version.Equal(req.Version)
		case model.ManagedRegistryDownload, model.ManagedCustom:
			return existing.State.Version.Equal(req.Version)
		default:
			return false
		}
	default:
		return false
	}
}
