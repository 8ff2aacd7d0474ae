// Package precompute implements the Precomputer (C5, §4.4): it decides
// whether a full resolve can be skipped by running the solver against an
// in-memory provider built only from already-loaded manifests, never from
// the network, with the current pin set supplied as hints. It never
// mutates any store.
package precompute

import (
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// ManifestSource is the subset of loaded manifest data the precomputer
// needs: constraints declared by the root, by already-loaded dependency
// manifests, and by edited dependencies, per §4.4's constraint union.
type ManifestSource interface {
	RootConstraints() []resolver.Constraint
	LoadedConstraints() []resolver.Constraint
	EditedConstraints() []resolver.Constraint
}

// PinSource supplies the current pin set used as solver hints.
type PinSource interface {
	Pins() []model.ResolvedPackage
}

// Precomputer runs a solver against manifest-only data.
type Precomputer struct {
	Solver resolver.Solver
}

// New constructs a Precomputer around the given solver implementation. The
// solver passed here must be backed by a ResolverPrecomputationProvider that
// answers container queries purely from already-loaded manifests — wiring
// that provider is the caller's responsibility (composition root), not this
// package's; Precomputer only shapes the constraint/hint inputs and maps
// the solver's output.
func New(solver resolver.Solver) *Precomputer {
	return &Precomputer{Solver: solver}
}

// Run executes one precomputation pass. callerConstraints are additional
// constraints supplied by the orchestrator call (e.g. explicit version
// requests from an `update` invocation naming specific packages).
//
// diagnosticsAlreadyFailed short-circuits to
// PrecomputationRequiredErrorsPreviouslyReported without invoking the
// solver at all, per §4.4's last bullet.
func (p *Precomputer) Run(src ManifestSource, pins PinSource, callerConstraints []resolver.Constraint, diagnosticsAlreadyFailed bool) (model.ResolutionPrecomputationResult, error) {
	if diagnosticsAlreadyFailed {
		return model.ResolutionPrecomputationResult{Kind: model.PrecomputationRequiredErrorsPreviouslyReported}, nil
	}

	constraints := make([]resolver.Constraint, 0,
		len(src.RootConstraints())+len(src.LoadedConstraints())+len(src.EditedConstraints())+len(callerConstraints))
	constraints = append(constraints, src.RootConstraints()...)
	constraints = append(constraints, src.LoadedConstraints()...)
	constraints = append(constraints, src.EditedConstraints()...)
	constraints = append(constraints, callerConstraints...)

	var hints []resolver.Hint
	for _, pin := range pins.Pins() {
		hints = append(hints, resolver.Hint{Package: pin.PackageRef, Pinned: pin.State})
	}

	result, err := p.Solver.Solve(resolver.Params{Constraints: constraints, Hints: hints})
	if err != nil {
		return model.ResolutionPrecomputationResult{}, err
	}

	if result.Succeeded() {
		return model.ResolutionPrecomputationResult{Kind: model.PrecomputationNotRequired}, nil
	}

	switch result.Err.Kind {
	case resolver.FailureMissingPackage:
		return model.ResolutionPrecomputationResult{
			Kind:       model.PrecomputationRequiredNewPackages,
			NewPackage: result.Err.Package,
		}, nil
	case resolver.FailureDifferentRequirement:
		return model.ResolutionPrecomputationResult{
			Kind:                 model.PrecomputationRequiredRequirementChange,
			ChangedPackage:       result.Err.Package,
			CurrentState:         result.Err.CurrentState,
			RequestedRequirement: result.Err.Requested,
		}, nil
	default:
		return model.ResolutionPrecomputationResult{
			Kind:    model.PrecomputationRequiredOther,
			Message: result.Err.Error(),
		}, nil
	}
}
