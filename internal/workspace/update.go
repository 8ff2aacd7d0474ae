package workspace

import (
	"context"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/checkout"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/reconcile"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// UpdateOptions configures an update(root, packages?, dryRun) call.
type UpdateOptions struct {
	RootPaths []string
	// Packages restricts the update to these identities (partial update,
	// §4.7 step 3); empty means full update.
	Packages []model.PackageIdentity
	DryRun   bool
	// UpdateBranches controls the reconciler's branch-freeze behavior
	// (§8 P6).
	UpdateBranches bool
}

// UpdateResult is returned by Update.
type UpdateResult struct {
	Changes    []model.ReconcileEntry
	Warnings   []reconcile.Warning
	OriginHash string
	// DryRunReport is set iff UpdateOptions.DryRun was requested: a
	// TOML-rendered change report instead of an applied checkout.
	DryRunReport []byte
}

// Update implements the update entry point (§4.7).
func (o *Orchestrator) Update(opts UpdateOptions) (UpdateResult, error) {
	scope, cancel := o.Ctx.NewScope(context.Background())
	defer cancel()

	fb := o.feedback()
	fb.WillUpdateDependencies()

	// Step 1: load root manifests; compute origin hash.
	roots, err := o.Loader.LoadRootManifests(opts.RootPaths)
	if err != nil {
		return UpdateResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "load root manifests").Error()}
	}

	var rootLocations []string
	rootConstraints := rootConstraintsFromManifests(roots)
	for _, c := range rootConstraints {
		rootLocations = append(rootLocations, c.Package.Location)
	}
	originHash := computeOriginHash(roots, rootLocations)

	// Step 2: load current dependency manifests. Abort on errors.
	var graphRoot model.PackageReference
	for id := range roots {
		graphRoot = model.PackageReference{Identity: id}
		break
	}
	deps, err := o.Loader.LoadDependencyManifests(graphRoot, true)
	if err != nil {
		return UpdateResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "load dependency manifests").Error()}
	}

	// Step 3: a full update (no packages requested) resolves with no pin
	// hints; a partial update keeps every current pin as a hint except
	// those requested for update.
	requested := make(map[model.PackageIdentity]bool, len(opts.Packages))
	for _, id := range opts.Packages {
		requested[id] = true
	}

	var hints []resolver.Hint
	if len(opts.Packages) > 0 {
		for _, pin := range o.Pins.Pins() {
			if requested[pin.PackageRef.Identity] {
				continue // drop pin: partial update requested for this package
			}
			hints = append(hints, resolver.Hint{Package: pin.PackageRef, Pinned: pin.State})
		}
	}

	// Step 4: constraints = edited-package constraints ∪ root constraints.
	constraints := append(append([]resolver.Constraint{}, deps.EditedPackagesConstraints...), rootConstraints...)

	// Step 5: call resolver.
	fb.WillResolveDependencies("update")
	o.Ctx.setActiveResolver(o.Solver)
	var result resolver.Result
	duration, err := timeIt(func() error {
		var solveErr error
		result, solveErr = o.Solver.Solve(resolver.Params{Constraints: constraints, Hints: hints})
		return solveErr
	})
	o.Ctx.clearActiveResolver()
	if err != nil {
		return UpdateResult{}, &FatalError{Kind: ErrorResolutionFailure, Message: err.Error()}
	}
	if !result.Succeeded() {
		return UpdateResult{}, &FatalError{Kind: ErrorResolutionFailure, Message: result.Err.Error()}
	}
	fb.DidResolveDependencies(duration)

	recResult, err := reconcile.Reconcile(o.Managed.All(), result.Bindings, reconcile.Options{
		UpdateBranches: opts.UpdateBranches,
		IsRoot:         isRootFunc(roots),
		Revisions:      revisionLookup{provider: o.Provider, scope: scope},
		Pins:           pinLookup{pins: o.Pins},
		Fatal:          func(message string) error { return illegalTransition(message) },
	})
	if err != nil {
		return UpdateResult{}, err
	}

	if opts.DryRun {
		report, err := checkout.BuildChangeReport(recResult.Changes).Render()
		if err != nil {
			return UpdateResult{}, &FatalError{Kind: ErrorInconsistency, Message: errors.Wrap(err, "render dry-run report").Error()}
		}
		return UpdateResult{Changes: recResult.Changes, Warnings: recResult.Warnings, OriginHash: originHash, DryRunReport: report}, nil
	}

	// Step 6: apply via C7.
	exec := o.newExecutor(scope)
	taskErrs := exec.Apply(recResult.Changes)
	for _, te := range taskErrs {
		o.logErrf("checkout failed for %s: %v", te.Identity, te.Err)
	}

	reloaded, err := o.Loader.LoadDependencyManifests(graphRoot, true)
	if err != nil {
		return UpdateResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "reload dependency manifests").Error()}
	}
	if err := checkMissingPackagesInvariant(reloaded.RequiredPackages, o.Managed); err != nil {
		return UpdateResult{}, err
	}

	// Step 7: save pin store with the new origin hash.
	if err := o.savePins(originHash); err != nil {
		return UpdateResult{}, err
	}
	if err := o.Managed.Save(); err != nil {
		return UpdateResult{}, &FatalError{Kind: ErrorPersistence, Message: errors.Wrap(err, "save managed store").Error()}
	}

	fb.DidUpdateDependencies(0)
	if len(recResult.Changes) == 0 {
		fb.DependenciesUpToDate()
	}

	return UpdateResult{Changes: recResult.Changes, Warnings: recResult.Warnings, OriginHash: originHash}, nil
}
