// Package reconcile implements the State Reconciler (C6, §4.5): it diffs
// the resolver's bindings against the current managed-dependency set and
// classifies each package as added, updated, unchanged, or removed.
package reconcile

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// RevisionLookup resolves a branch/tag identifier to its canonical revision
// via the container provider (C3). Reconciling never talks to the network
// directly; it only asks this interface, so callers can swap in an
// in-memory stub (as reconciler_test.go does).
type RevisionLookup interface {
	Revision(ref model.PackageReference, branchOrTag string) (gpsmodel.Revision, error)
}

// PinLookup exposes just enough of the pin store for the branch-freeze rule
// in step 3 ("revision(id, branch?)") below.
type PinLookup interface {
	Get(id model.PackageIdentity) (model.ResolvedPackage, bool)
}

// Options configures a single Reconcile call.
type Options struct {
	// UpdateBranches, when false, freezes any branch-tracking package at its
	// previously pinned revision instead of the freshly fetched one (§8 P6).
	UpdateBranches bool
	// IsRoot reports whether a reference names one of the root packages.
	IsRoot    func(model.PackageReference) bool
	Revisions RevisionLookup
	Pins      PinLookup

	// Fatal builds the error returned for illegal binding transitions and
	// other internal-invariant violations (§7/E1's Inconsistency kind). It
	// is injected rather than imported directly: internal/workspace already
	// imports this package to build Options, so importing it back here to
	// construct a *workspace.FatalError would cycle. When nil, an
	// unstructured errors.Errorf is used instead (e.g. from reconciler_test.go,
	// which doesn't care about the returned type).
	Fatal func(message string) error
}

// fatal builds the error for an internal-invariant violation, preferring
// the injected constructor so callers can detect it via errors.As.
func (o Options) fatal(format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)
	if o.Fatal != nil {
		return o.Fatal(message)
	}
	return errors.Errorf("%s", message)
}

// Warning is a non-fatal advisory the reconciler can raise alongside its
// main output: an edited dependency whose binding disagrees with the edit
// (SPEC_FULL.md's Open Question 1), or a semver downgrade of a versioned
// package.
type Warning struct {
	Identity model.PackageIdentity
	Message  string
}

// Result is the reconciler's full output: the ordered change list plus any
// warnings raised along the way.
type Result struct {
	Changes  []model.ReconcileEntry
	Warnings []Warning
}

// Reconcile computes the ordered (PackageReference, PackageStateChange)
// list for the given bindings against the current managed set (§4.5).
// Bindings are processed in input order; removals are appended last (tie-
// break rule in §4.5), and no package appears more than once (§8 P5).
func Reconcile(managed []model.ManagedDependency, bindings []model.DependencyResolverBinding, opts Options) (Result, error) {
	byIdentity := make(map[model.PackageIdentity]model.ManagedDependency, len(managed))
	for _, m := range managed {
		byIdentity[m.Identity()] = m
	}

	touched := make(map[model.PackageIdentity]bool, len(bindings))
	var res Result

	for _, b := range bindings {
		ref := b.Package
		touched[ref.Identity] = true

		cur, hasCur := byIdentity[ref.Identity]

		// Step 1: edited dependencies are preserved across resolutions —
		// emit unchanged for the original reference, regardless of the
		// fresh binding, but warn if the binding disagrees with it.
		if hasCur && model.ManagedKind(cur.State.Kind) == model.ManagedEdited {
			originalRef := ref
			if cur.State.BasedOn != nil {
				originalRef = cur.State.BasedOn.PackageRef
			}
			res.Changes = append(res.Changes, model.ReconcileEntry{
				Ref:    originalRef,
				Change: model.PackageStateChange{Kind: model.ChangeUnchanged},
			})
			if conflictsWithEdit(cur, b) {
				res.Warnings = append(res.Warnings, Warning{
					Identity: ref.Identity,
					Message:  fmt.Sprintf("edited dependency %s retained, but the resolver's binding for it differs from the edit", ref.Identity),
				})
			}
			continue
		}

		// Step 2: re-lookup by (identity, location) to capture drift. If the
		// location moved, treat it as "no current state" for comparison
		// purposes below (the old artifact must be replaced).
		if hasCur && cur.PackageRef.Location != ref.Location {
			hasCur = false
		}

		change, err := classify(cur, hasCur, b, opts)
		if err != nil {
			return Result{}, err
		}
		if change == nil {
			continue // e.g. root package bound unversioned: skip entirely
		}
		if change.Kind == model.ChangeUpdated && change.Requirement.Kind == model.RequireVersion {
			if prev, ok := currentVersion(cur); ok && prev.IsSemver() && change.Requirement.Version.IsSemver() && change.Requirement.Version.Less(prev) {
				res.Warnings = append(res.Warnings, Warning{
					Identity: ref.Identity,
					Message:  fmt.Sprintf("%s downgraded from %s to %s", ref.Identity, prev, change.Requirement.Version),
				})
			}
		}
		res.Changes = append(res.Changes, model.ReconcileEntry{Ref: ref, Change: *change})
	}

	// Step 4: anything not touched by any binding is removed.
	for id, m := range byIdentity {
		if !touched[id] {
			res.Changes = append(res.Changes, model.ReconcileEntry{
				Ref:    m.PackageRef,
				Change: model.PackageStateChange{Kind: model.ChangeRemoved},
			})
		}
	}

	return res, nil
}

func conflictsWithEdit(cur model.ManagedDependency, b model.DependencyResolverBinding) bool {
	if cur.State.BasedOn == nil {
		return false
	}
	base := cur.State.BasedOn.State
	switch b.BoundVersion.Kind {
	case model.BoundVersion_:
		return !sameVersion(*cur.State.BasedOn, b.BoundVersion.Version)
	case model.BoundRevision:
		return model.ManagedKind(base.Kind) != model.ManagedSourceControlCheckout || base.Checkout.Revision != b.BoundVersion.Revision
	default:
		return false
	}
}

func classify(cur model.ManagedDependency, hasCur bool, b model.DependencyResolverBinding, opts Options) (*model.PackageStateChange, error) {
	switch b.BoundVersion.Kind {
	case model.BoundExcluded:
		return nil, opts.fatal("solver emitted an excluded binding for %s; this should be impossible", b.Package.Identity)

	case model.BoundUnversioned:
		if opts.IsRoot != nil && opts.IsRoot(b.Package) {
			return nil, nil
		}
		req := model.Requirement{Kind: model.RequireUnversioned}
		if !hasCur {
			return &model.PackageStateChange{Kind: model.ChangeAdded, Requirement: req, ProductFilter: b.Products}, nil
		}
		switch model.ManagedKind(cur.State.Kind) {
		case model.ManagedFileSystem, model.ManagedEdited:
			return &model.PackageStateChange{Kind: model.ChangeUnchanged}, nil
		case model.ManagedSourceControlCheckout:
			return &model.PackageStateChange{Kind: model.ChangeUpdated, Requirement: req, ProductFilter: b.Products}, nil
		default:
			return nil, opts.fatal("illegal transition: %s cannot move from %s to unversioned", b.Package.Identity, model.ManagedKind(cur.State.Kind))
		}

	case model.BoundRevision:
		rev := b.BoundVersion.Revision
		branch := b.BoundVersion.Branch
		if opts.Revisions != nil {
			identifier := branch
			if identifier == "" {
				identifier = string(rev)
			}
			if canon, err := opts.Revisions.Revision(b.Package, identifier); err == nil && canon != "" {
				rev = canon
			}
		}

		if !opts.UpdateBranches && branch != "" && opts.Pins != nil {
			if pin, ok := opts.Pins.Get(b.Package.Identity); ok && pin.State.Kind == model.PinBranch && pin.State.Branch == branch {
				rev = pin.State.Revision // branch-freeze: reuse the pinned revision (§8 P6)
			}
		}

		var target model.CheckoutState
		if branch != "" {
			target = model.BranchCheckout(branch, rev)
		} else {
			target = model.RevisionCheckout(rev)
		}

		req := model.Requirement{Kind: model.RequireRevision, Revision: rev, Branch: branch}
		if !hasCur {
			return &model.PackageStateChange{Kind: model.ChangeAdded, Requirement: req, ProductFilter: b.Products}, nil
		}
		if model.ManagedKind(cur.State.Kind) == model.ManagedSourceControlCheckout && cur.State.Checkout.Equal(target) {
			return &model.PackageStateChange{Kind: model.ChangeUnchanged}, nil
		}
		return &model.PackageStateChange{Kind: model.ChangeUpdated, Requirement: req, ProductFilter: b.Products}, nil

	case model.BoundVersion_:
		v := b.BoundVersion.Version
		req := model.Requirement{Kind: model.RequireVersion, Version: v}
		if !hasCur {
			return &model.PackageStateChange{Kind: model.ChangeAdded, Requirement: req, ProductFilter: b.Products}, nil
		}
		if sameVersion(cur, v) {
			return &model.PackageStateChange{Kind: model.ChangeUnchanged}, nil
		}
		return &model.PackageStateChange{Kind: model.ChangeUpdated, Requirement: req, ProductFilter: b.Products}, nil

	default:
		return nil, opts.fatal("unrecognized bound-version kind for %s", b.Package.Identity)
	}
}

// currentVersion extracts the concrete version a managed dependency is
// currently pinned to, if its state carries one at all.
func currentVersion(cur model.ManagedDependency) (gpsmodel.Version, bool) {
	switch model.ManagedKind(cur.State.Kind) {
	case model.ManagedSourceControlCheckout:
		if cur.State.Checkout.Kind == model.CheckoutVersion {
			return cur.State.Checkout.Version, true
		}
		return gpsmodel.Version{}, false
	case model.ManagedRegistryDownload, model.ManagedCustom:
		return cur.State.Version, true
	default:
		return gpsmodel.Version{}, false
	}
}

func sameVersion(cur model.ManagedDependency, v gpsmodel.Version) bool {
	switch model.ManagedKind(cur.State.Kind) {
	case model.ManagedSourceControlCheckout:
		return cur.State.Checkout.Kind == model.CheckoutVersion && cur.State.Checkout.Version.Equal(v)
	case model.ManagedRegistryDownload:
		return cur.State.Version.Equal(v)
	case model.ManagedCustom:
		return cur.State.Version.Equal(v)
	default:
		return false
	}
}
