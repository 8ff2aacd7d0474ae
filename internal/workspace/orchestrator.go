// Package workspace implements the Resolve Orchestrator (C9, §4.7-§4.9):
// the three entry points (update, resolve, resolve-from-lock) that tie the
// manifest loaders, pin/managed stores, container provider, resolver, and
// checkout executor together into one resolve cycle, plus the
// configuration, error, and logging surface around it. Mirrors cmd/dep's
// role of wiring dep.Ctx + dep.Project + gps.SourceManager together, but
// as a programmatic API rather than a CLI command.
package workspace

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/checkout"
	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/feedback"
	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/hash"
	"github.com/solvepkg/wspkg/internal/manifest"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// PinStore and ManagedStore name just the methods Orchestrator needs, so
// tests can supply in-memory doubles instead of the real file-backed
// *store.PinStore / *store.ManagedStore.
type PinStore interface {
	Pins() []model.ResolvedPackage
	Get(id model.PackageIdentity) (model.ResolvedPackage, bool)
	GetComparingLocation(ref model.PackageReference) (model.ResolvedPackage, bool)
	Add(dep model.ManagedDependency)
	Remove(id model.PackageIdentity)
	Save(originHash, minimumToolsVersion string) error
	// CurrentOriginHash returns the hash stored alongside the pins on their
	// last save, or "" if none has ever been saved (§8 R1/bestEffort
	// staleness check).
	CurrentOriginHash() string
}

type ManagedStore interface {
	checkout.Store
	All() []model.ManagedDependency
	GetComparingLocation(ref model.PackageReference) (model.ManagedDependency, bool)
	Save() error
}

// Orchestrator bundles every collaborator a resolve cycle needs.
type Orchestrator struct {
	Ctx      *Ctx
	Loader   manifest.Loader
	Pins     PinStore
	Managed  ManagedStore
	Provider container.Provider
	Solver   resolver.Solver
	Paths    checkout.PathResolver
	Feedback *feedback.Sink

	// MinimumToolsVersion is recorded into the pin store on every save
	// (§6): the minimum tools version across all loaded roots.
	MinimumToolsVersion string
}

func (o *Orchestrator) skipDependenciesUpdates() bool {
	if o.Ctx == nil {
		return false
	}
	return o.Ctx.Config.SkipDependenciesUpdates
}

func (o *Orchestrator) logErrf(format string, args ...interface{}) {
	if o.Ctx == nil {
		return
	}
	o.Ctx.Loggers.Errf(format, args...)
}

func (o *Orchestrator) feedback() *feedback.Sink {
	if o.Feedback == nil {
		return feedback.NewSink(nil)
	}
	return o.Feedback
}

// newExecutor builds a fresh Checkout Executor bound to this orchestrator's
// store and provider; a resolve cycle constructs one per invocation rather
// than holding it long-lived, since its PathResolver/Provider pairing never
// changes within a cycle but the store it mutates must reflect the latest
// snapshot. scope is the cycle's merged cancellation scope (§5), threaded
// through every container call the executor makes.
func (o *Orchestrator) newExecutor(scope container.Scope) *checkout.Executor {
	return checkout.New(o.Managed, o.Provider, o.Paths, scope)
}

// revisionLookup adapts the container Provider to reconcile.RevisionLookup.
type revisionLookup struct {
	provider container.Provider
	scope    container.Scope
}

func (r revisionLookup) Revision(ref model.PackageReference, branchOrTag string) (gpsmodel.Revision, error) {
	c, err := r.provider.GetContainer(ref, container.Never(), r.scope)
	if err != nil {
		return "", errors.Wrapf(err, "acquire container for %s", ref.Identity)
	}
	return c.GetRevision(branchOrTag)
}

// pinLookup adapts PinStore to reconcile.PinLookup.
type pinLookup struct {
	pins PinStore
}

func (p pinLookup) Get(id model.PackageIdentity) (model.ResolvedPackage, bool) {
	return p.pins.Get(id)
}

// manifestConstraintSource adapts a loaded DependencyManifests plus root
// constraints to precompute.ManifestSource.
type manifestConstraintSource struct {
	root []resolver.Constraint
	deps manifest.DependencyManifests
}

func (s manifestConstraintSource) RootConstraints() []resolver.Constraint { return s.root }
func (s manifestConstraintSource) LoadedConstraints() []resolver.Constraint {
	return s.deps.DependencyConstraints
}
func (s manifestConstraintSource) EditedConstraints() []resolver.Constraint {
	return s.deps.EditedPackagesConstraints
}

// pinSource adapts PinStore to precompute.PinSource.
type pinSource struct{ pins PinStore }

func (p pinSource) Pins() []model.ResolvedPackage { return p.pins.Pins() }

// rootConstraintsFromManifests flattens every root manifest's declared
// dependencies into resolver constraints tagged SourceRoot: roots in
// identity order, each root's dependencies in declared order.
func rootConstraintsFromManifests(manifests map[model.PackageIdentity]manifest.Manifest) []resolver.Constraint {
	ids := make([]model.PackageIdentity, 0, len(manifests))
	for id := range manifests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []resolver.Constraint
	for _, id := range ids {
		for _, c := range manifests[id].Dependencies {
			c.Source = resolver.SourceRoot
			out = append(out, c)
		}
	}
	return out
}

// computeOriginHash derives C8's origin hash from loaded root manifests
// (ordered by identity) and the locations of the top-level dependencies
// those manifests declare (in the order given). Because roots arrive as a
// map keyed by identity, the order in which root paths were listed does
// not affect the hash.
func computeOriginHash(manifests map[model.PackageIdentity]manifest.Manifest, dependencyLocations []string) string {
	return hash.Compute(manifest.OrderedManifestBytes(manifests), dependencyLocations)
}

// isRoot reports whether ref names one of the currently loaded root
// manifests.
func isRootFunc(roots map[model.PackageIdentity]manifest.Manifest) func(model.PackageReference) bool {
	return func(ref model.PackageReference) bool {
		_, ok := roots[ref.Identity]
		return ok
	}
}

// savePins derives and persists pins for every managed dependency, then
// saves with the given origin hash — P2's "at most once, only after every
// Phase-B task succeeded" is the caller's responsibility to enforce by only
// calling this once execution has confirmed success.
func (o *Orchestrator) savePins(originHash string) error {
	for _, dep := range o.Managed.All() {
		o.Pins.Add(dep)
	}
	if err := o.Pins.Save(originHash, o.MinimumToolsVersion); err != nil {
		return &FatalError{Kind: ErrorPersistence, Message: errors.Wrap(err, "save pin store").Error()}
	}
	return nil
}

// checkMissingPackagesInvariant enforces §4.9/P1: every package the
// fully-loaded graph requires must now be a materialized managed
// dependency.
func checkMissingPackagesInvariant(required []model.PackageReference, managed ManagedStore) error {
	var missing []model.PackageReference
	for _, ref := range required {
		if _, ok := managed.Get(ref.Identity); !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return exhaustedAttempts(missing)
	}
	return nil
}

// timeNow is indirected so tests can observe deterministic-ish durations
// without this package reaching for a clock-injection library the corpus
// never uses.
var timeNow = time.Now

// timeIt runs fn and returns how long it took, for the delegate callbacks
// that report duration (§6).
func timeIt(fn func() error) (time.Duration, error) {
	start := timeNow()
	err := fn()
	return timeNow().Sub(start), err
}
