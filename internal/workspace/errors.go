package workspace

import (
	"fmt"

	"github.com/solvepkg/wspkg/internal/model"
)

// ErrorKind discriminates the error categories the orchestrator surfaces
// (§7): InvalidInput, Integrity, ResolutionFailure, Inconsistency,
// Transport, Persistence.
type ErrorKind uint8

const (
	ErrorInvalidInput ErrorKind = iota
	ErrorIntegrity
	ErrorResolutionFailure
	ErrorInconsistency
	ErrorTransport
	ErrorPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorInvalidInput:
		return "invalid input"
	case ErrorIntegrity:
		return "integrity"
	case ErrorResolutionFailure:
		return "resolution failure"
	case ErrorInconsistency:
		return "inconsistency"
	case ErrorTransport:
		return "transport"
	case ErrorPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// FatalError is the distinguished type for the Inconsistency kind (§7):
// exhaustedAttempts and illegal binding transitions are fatal and must
// bubble all the way up rather than being trapped per-task. Callers use
// errors.As to detect it specifically.
type FatalError struct {
	Kind    ErrorKind
	Message string
	Missing []model.PackageReference // set for exhaustedAttempts
}

func (e *FatalError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (missing: %v)", e.Kind, e.Message, e.Missing)
}

func exhaustedAttempts(missing []model.PackageReference) *FatalError {
	return &FatalError{
		Kind:    ErrorInconsistency,
		Message: "post-resolution manifests still reference unresolved packages",
		Missing: missing,
	}
}

func illegalTransition(message string) *FatalError {
	return &FatalError{Kind: ErrorInconsistency, Message: message}
}
