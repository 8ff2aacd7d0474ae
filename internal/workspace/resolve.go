package workspace

import (
	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/model"
)

// StrategyKind discriminates the three resolve() strategies (§4.7).
type StrategyKind uint8

const (
	StrategyLockFile StrategyKind = iota
	StrategyUpdate
	StrategyBestEffort
)

// Strategy is resolve()'s tagged input: lockFile | update(force) | bestEffort.
type Strategy struct {
	Kind  StrategyKind
	Force bool // set iff Kind == StrategyUpdate
}

func LockFile() Strategy           { return Strategy{Kind: StrategyLockFile} }
func UpdateStrategy(force bool) Strategy { return Strategy{Kind: StrategyUpdate, Force: force} }
func BestEffort() Strategy         { return Strategy{Kind: StrategyBestEffort} }

// ResolveResult is resolve()'s combined output across all three strategies.
type ResolveResult struct {
	Manifests      interface{} // manifest.DependencyManifests; interface{} avoids importing manifest twice for the lockFile/bestEffort-only path
	Precomputation model.ResolutionPrecomputationResult
	Update         *UpdateResult // set iff the update/full-resolve path ran
}

// Resolve implements the resolve(root, strategy) entry point (§4.7).
func (o *Orchestrator) Resolve(rootPaths []string, strategy Strategy) (ResolveResult, error) {
	switch strategy.Kind {
	case StrategyLockFile:
		rfl, err := o.ResolveFromLock(rootPaths)
		if err != nil {
			return ResolveResult{}, err
		}
		if rfl.Precomputation.RequiresResolution() {
			return ResolveResult{Manifests: rfl.Manifests, Precomputation: rfl.Precomputation}, &FatalError{
				Kind:    ErrorResolutionFailure,
				Message: "lock file is authoritative but precomputation determined resolution is required",
			}
		}
		return ResolveResult{Manifests: rfl.Manifests, Precomputation: rfl.Precomputation}, nil

	case StrategyUpdate:
		if strategy.Force {
			upd, err := o.Update(UpdateOptions{RootPaths: rootPaths, UpdateBranches: true})
			if err != nil {
				return ResolveResult{}, err
			}
			return ResolveResult{Update: &upd}, nil
		}
		// Non-forced update runs the same full resolve+update path as a
		// forced one, without precomputation; the only difference is that
		// Force also lets branch-tracking packages move (UpdateBranches).
		upd, err := o.Update(UpdateOptions{RootPaths: rootPaths})
		if err != nil {
			return ResolveResult{}, err
		}
		return ResolveResult{Update: &upd}, nil

	case StrategyBestEffort:
		return o.resolveBestEffort(rootPaths)

	default:
		return ResolveResult{}, errors.Errorf("unrecognized resolve strategy")
	}
}

func (o *Orchestrator) resolveBestEffort(rootPaths []string) (ResolveResult, error) {
	for _, dep := range o.Managed.All() {
		if model.ManagedKind(dep.State.Kind) == model.ManagedEdited {
			upd, err := o.Update(UpdateOptions{RootPaths: rootPaths})
			if err != nil {
				return ResolveResult{}, err
			}
			return ResolveResult{Update: &upd}, nil
		}
	}

	roots, err := o.Loader.LoadRootManifests(rootPaths)
	if err != nil {
		return ResolveResult{}, &FatalError{Kind: ErrorInvalidInput, Message: errors.Wrap(err, "load root manifests").Error()}
	}
	var locations []string
	for _, c := range rootConstraintsFromManifests(roots) {
		locations = append(locations, c.Package.Location)
	}
	currentHash := computeOriginHash(roots, locations)

	existingHash := o.Pins.CurrentOriginHash()
	staleLock := existingHash == "" || existingHash != currentHash
	if staleLock {
		upd, err := o.Update(UpdateOptions{RootPaths: rootPaths})
		if err != nil {
			return ResolveResult{}, err
		}
		return ResolveResult{Update: &upd}, nil
	}

	rfl, err := o.ResolveFromLock(rootPaths)
	if err != nil {
		return ResolveResult{}, err
	}
	if rfl.Precomputation.RequiresResolution() {
		upd, err := o.Update(UpdateOptions{RootPaths: rootPaths})
		if err != nil {
			return ResolveResult{}, err
		}
		return ResolveResult{Update: &upd}, nil
	}
	return ResolveResult{Manifests: rfl.Manifests, Precomputation: rfl.Precomputation}, nil
}
