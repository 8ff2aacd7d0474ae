package workspace

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/manifest"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/precompute"
)

// ResolveFromLockResult bundles what §4.8 step 5 returns.
type ResolveFromLockResult struct {
	Manifests      manifest.DependencyManifests
	Precomputation model.ResolutionPrecomputationResult
}

// ResolveFromLock implements the resolve-from-lock procedure (§4.8).
func (o *Orchestrator) ResolveFromLock(rootPaths []string) (ResolveFromLockResult, error) {
	scope, cancel := o.Ctx.NewScope(context.Background())
	defer cancel()

	// Step 1: load root manifests, build graph root.
	roots, err := o.Loader.LoadRootManifests(rootPaths)
	if err != nil {
		return ResolveFromLockResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "load root manifests").Error()}
	}
	var graphRoot model.PackageReference
	for id := range roots {
		graphRoot = model.PackageReference{Identity: id}
		break
	}

	pins := o.Pins.Pins()

	// Step 2: pre-warm containers for every pin, in parallel.
	var wg sync.WaitGroup
	wg.Add(len(pins))
	for _, pin := range pins {
		go func(pin model.ResolvedPackage) {
			defer wg.Done()
			strategy := prewarmStrategy(pin, o.skipDependenciesUpdates())
			if _, err := o.Provider.GetContainer(pin.PackageRef, strategy, scope); err != nil {
				o.logErrf("pre-warm failed for %s: %v", pin.PackageRef.Identity, err)
			}
		}(pin)
	}
	wg.Wait()

	// Step 3: select pins requiring actual clone.
	var toClone []model.ResolvedPackage
	for _, pin := range pins {
		if o.pinRequiresClone(pin) {
			toClone = append(toClone, pin)
		}
	}

	// Step 4: in parallel, checkout/download each selected pin.
	var errsMu sync.Mutex
	var cloneErrs []error
	var cwg sync.WaitGroup
	cwg.Add(len(toClone))
	for _, pin := range toClone {
		go func(pin model.ResolvedPackage) {
			defer cwg.Done()
			if err := o.materializePin(pin, scope); err != nil {
				errsMu.Lock()
				cloneErrs = append(cloneErrs, errors.Wrapf(err, "materialize %s", pin.PackageRef.Identity))
				errsMu.Unlock()
			}
		}(pin)
	}
	cwg.Wait()
	for _, err := range cloneErrs {
		o.logErrf("%v", err)
	}

	// Step 5: reload manifests, then run the precomputer. Refreshing binary
	// artifacts/prebuilts is an out-of-scope external collaborator (§6); no
	// call site exists in this module.
	reloaded, err := o.Loader.LoadDependencyManifests(graphRoot, false)
	if err != nil {
		return ResolveFromLockResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "reload dependency manifests").Error()}
	}

	pc := precompute.New(o.Solver)
	result, err := pc.Run(
		manifestConstraintSource{root: rootConstraintsFromManifests(roots), deps: reloaded},
		pinSource{pins: o.Pins},
		nil,
		false,
	)
	if err != nil {
		return ResolveFromLockResult{}, err
	}

	return ResolveFromLockResult{Manifests: reloaded, Precomputation: result}, nil
}

func prewarmStrategy(pin model.ResolvedPackage, skipUpdates bool) container.UpdateStrategy {
	if skipUpdates {
		return container.Never()
	}
	switch pin.State.Kind {
	case model.PinBranch, model.PinRevision:
		return container.IfNeeded(pin.State.Revision)
	case model.PinVersion:
		if pin.State.HasRevision() {
			return container.IfNeeded(pin.State.Revision)
		}
		return container.Always()
	default:
		return container.Always()
	}
}

func (o *Orchestrator) pinRequiresClone(pin model.ResolvedPackage) bool {
	dep, ok := o.Managed.GetComparingLocation(pin.PackageRef)
	if !ok {
		return true // no managed dependency, or its location drifted
	}
	switch model.ManagedKind(dep.State.Kind) {
	case model.ManagedEdited, model.ManagedFileSystem, model.ManagedCustom:
		return true // always "require" reprocessing (§4.8 step 3)
	case model.ManagedSourceControlCheckout:
		return !dep.State.Checkout.Equal(checkoutStateFromPin(pin.State))
	default:
		return true
	}
}

func checkoutStateFromPin(p model.PinState) model.CheckoutState {
	switch p.Kind {
	case model.PinVersion:
		return model.VersionCheckout(p.Version, p.Revision)
	case model.PinBranch:
		return model.BranchCheckout(p.Branch, p.Revision)
	default:
		return model.RevisionCheckout(p.Revision)
	}
}

func (o *Orchestrator) materializePin(pin model.ResolvedPackage, scope container.Scope) error {
	dir := o.Paths(pin.PackageRef.Identity)

	c, err := o.Provider.GetContainer(pin.PackageRef, container.IfNeeded(pin.State.Revision), scope)
	if err != nil {
		return err
	}

	switch c.Kind() {
	case container.KindRegistry:
		if err := c.Download(dir, pin.State.Version); err != nil {
			return err
		}
		o.Managed.Put(model.ManagedDependency{
			PackageRef: pin.PackageRef,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload), Version: pin.State.Version},
		})
		return nil
	default: // source control
		target := checkoutStateFromPin(pin.State)
		if err := c.Checkout(dir, target); err != nil {
			return err
		}
		o.Managed.Put(model.ManagedDependency{
			PackageRef: pin.PackageRef,
			State:      model.ManagedDependencyState{Kind: uint8(model.ManagedSourceControlCheckout), Checkout: target},
		})
		return nil
	}
}
