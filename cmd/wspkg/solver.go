package main

import (
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// passthroughSolver satisfies resolver.Solver without doing any actual
// constraint search: it binds every constraint directly to what it asks
// for, preferring a hint's pinned state when one exists for the same
// package. The real PubGrub-style SAT search is an external collaborator
// this module only consumes (C4); this stand-in exists so the CLI has
// something to call end-to-end, not as a resolution algorithm.
type passthroughSolver struct{}

func (passthroughSolver) Solve(params resolver.Params) (resolver.Result, error) {
	hinted := make(map[model.PackageIdentity]model.PinState, len(params.Hints))
	for _, h := range params.Hints {
		hinted[h.Package.Identity] = h.Pinned
	}

	seen := make(map[model.PackageIdentity]bool, len(params.Constraints))
	var bindings []model.DependencyResolverBinding
	for _, c := range params.Constraints {
		if seen[c.Package.Identity] {
			continue
		}
		seen[c.Package.Identity] = true

		if pin, ok := hinted[c.Package.Identity]; ok {
			bindings = append(bindings, model.DependencyResolverBinding{
				Package:      c.Package,
				BoundVersion: boundFromPin(pin),
			})
			continue
		}
		bindings = append(bindings, model.DependencyResolverBinding{
			Package:      c.Package,
			BoundVersion: boundFromRequirement(c.Require),
		})
	}

	return resolver.Result{Bindings: bindings}, nil
}

func boundFromPin(p model.PinState) model.BoundVersion {
	switch p.Kind {
	case model.PinVersion:
		return model.BoundVersion{Kind: model.BoundVersion_, Version: p.Version, Revision: p.Revision}
	case model.PinBranch:
		return model.BoundVersion{Kind: model.BoundRevision, Revision: p.Revision, Branch: p.Branch}
	default:
		return model.BoundVersion{Kind: model.BoundRevision, Revision: p.Revision}
	}
}

func boundFromRequirement(r model.Requirement) model.BoundVersion {
	switch r.Kind {
	case model.RequireVersion:
		return model.BoundVersion{Kind: model.BoundVersion_, Version: r.Version}
	case model.RequireRevision:
		return model.BoundVersion{Kind: model.BoundRevision, Revision: r.Revision, Branch: r.Branch}
	default:
		return model.BoundVersion{Kind: model.BoundUnversioned}
	}
}
