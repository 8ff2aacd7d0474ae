package model

// ResolutionPrecomputationResult is the Precomputer's tagged output (§3, §4.4):
// either resolution is not required, or it is required for one of several
// reasons.
type PrecomputationKind uint8

const (
	PrecomputationNotRequired PrecomputationKind = iota
	PrecomputationRequiredNewPackages
	PrecomputationRequiredRequirementChange
	PrecomputationRequiredOther
	PrecomputationRequiredErrorsPreviouslyReported
)

type ResolutionPrecomputationResult struct {
	Kind PrecomputationKind

	// NewPackage is set for PrecomputationRequiredNewPackages.
	NewPackage PackageReference

	// ChangedPackage, CurrentState, and RequestedRequirement are set for
	// PrecomputationRequiredRequirementChange.
	ChangedPackage       PackageReference
	CurrentState         ManagedDependencyState
	RequestedRequirement Requirement

	// Message is set for PrecomputationRequiredOther.
	Message string
}

func (r ResolutionPrecomputationResult) RequiresResolution() bool {
	return r.Kind != PrecomputationNotRequired
}
