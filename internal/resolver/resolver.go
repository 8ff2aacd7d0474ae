// Package resolver defines the Resolver (C4, §4.1/§9) consumed interface:
// given a constraint set and a pin set to use as hints, return either a
// successful set of bindings or a typed failure. The actual SAT solving
// lives outside this module (§6 Non-goals); this package only names the
// shape the core programs against, mirroring how golang-dep's gps package
// exposes gps.Solve/gps.SolveParameters as the boundary cmd/dep calls
// through without knowing the solver's internals.
package resolver

import (
	"github.com/solvepkg/wspkg/internal/model"
)

// ConstraintSource discriminates where a constraint on a package came from,
// purely for diagnostics (§4.7 step 4: "constraints = edited-package
// constraints ∪ root constraints").
type ConstraintSource uint8

const (
	SourceRoot ConstraintSource = iota
	SourceManifest
	SourceEdited
	SourceCaller
)

// Constraint is one input to the solve: a requirement on a package plus
// where it came from.
type Constraint struct {
	Package model.PackageReference
	Require model.Requirement
	Source  ConstraintSource
}

// Hint is a previously-pinned package the solver should prefer when
// multiple solutions satisfy the constraints (stability: don't needlessly
// move a package that's already happily pinned).
type Hint struct {
	Package model.PackageReference
	Pinned  model.PinState
}

// Params bundles everything one Solve call needs.
type Params struct {
	Constraints []Constraint
	Hints       []Hint
}

// FailureKind discriminates why a solve failed, so callers (particularly
// the Precomputer, §4.4) can pattern-match without parsing error strings.
type FailureKind uint8

const (
	FailureMissingPackage FailureKind = iota
	FailureDifferentRequirement
	FailureOther
)

// Failure is the solver's structured failure output.
type Failure struct {
	Kind FailureKind

	// Package is set for FailureMissingPackage and FailureDifferentRequirement.
	Package model.PackageReference

	// CurrentState and Requested are set for FailureDifferentRequirement:
	// the managed state already on disk conflicted with the newly
	// requested requirement.
	CurrentState model.ManagedDependencyState
	Requested    model.Requirement

	// Message carries a human-readable explanation for FailureOther.
	Message string
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureMissingPackage:
		return "missing package: " + string(f.Package.Identity)
	case FailureDifferentRequirement:
		return "conflicting requirement for " + string(f.Package.Identity)
	default:
		return f.Message
	}
}

// Result is the outcome of a Solve call: either Bindings is populated (on
// success) or Err is (on failure) — never both.
type Result struct {
	Bindings []model.DependencyResolverBinding
	Err      *Failure
}

func (r Result) Succeeded() bool { return r.Err == nil }

// Solver is the C4 consumed interface.
type Solver interface {
	Solve(params Params) (Result, error)
}
