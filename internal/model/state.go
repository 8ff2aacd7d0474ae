package model

import "github.com/solvepkg/wspkg/internal/gpsmodel"

// CheckoutState is a tagged union over the three ways a source-control
// checkout can be pinned (§3).
type CheckoutKind uint8

const (
	CheckoutVersion CheckoutKind = iota
	CheckoutRevision
	CheckoutBranch
)

type CheckoutState struct {
	Kind     CheckoutKind
	Version  gpsmodel.Version   // set iff Kind == CheckoutVersion
	Branch   string             // set iff Kind == CheckoutBranch
	Revision gpsmodel.Revision  // always set
}

func VersionCheckout(v gpsmodel.Version, rev gpsmodel.Revision) CheckoutState {
	return CheckoutState{Kind: CheckoutVersion, Version: v, Revision: rev}
}

func RevisionCheckout(rev gpsmodel.Revision) CheckoutState {
	return CheckoutState{Kind: CheckoutRevision, Revision: rev}
}

func BranchCheckout(branch string, rev gpsmodel.Revision) CheckoutState {
	return CheckoutState{Kind: CheckoutBranch, Branch: branch, Revision: rev}
}

// Equal compares two checkout states for the reconciler's unchanged/updated
// decision (§4.5).
func (c CheckoutState) Equal(o CheckoutState) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CheckoutVersion:
		return c.Version.Equal(o.Version) && c.Revision == o.Revision
	case CheckoutBranch:
		return c.Branch == o.Branch && c.Revision == o.Revision
	default: // CheckoutRevision
		return c.Revision == o.Revision
	}
}

// ManagedDependencyState is a tagged union over how a package is currently
// materialized on disk (§3).
type ManagedKind uint8

const (
	ManagedSourceControlCheckout ManagedKind = iota
	ManagedRegistryDownload
	ManagedFileSystem
	ManagedEdited
	ManagedCustom
)

type ManagedDependencyState struct {
	Kind uint8 // ManagedKind

	Checkout CheckoutState    // ManagedSourceControlCheckout
	Version  gpsmodel.Version // ManagedRegistryDownload, ManagedCustom
	Path     string           // ManagedFileSystem, ManagedCustom (retrieve path)

	// ManagedEdited
	BasedOn       *ManagedDependency
	UnmanagedPath string
}

func (k ManagedKind) String() string {
	switch k {
	case ManagedSourceControlCheckout:
		return "sourceControlCheckout"
	case ManagedRegistryDownload:
		return "registryDownload"
	case ManagedFileSystem:
		return "fileSystem"
	case ManagedEdited:
		return "edited"
	case ManagedCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ManagedDependency is the C1 record: {packageRef, state, subpath}.
type ManagedDependency struct {
	PackageRef PackageReference
	State      ManagedDependencyState
	Subpath    string
}

func (m ManagedDependency) Identity() PackageIdentity { return m.PackageRef.Identity }

// PinState is the tagged union a ResolvedPackage carries: version, revision,
// or branch (§3). Unlike ManagedDependencyState it never represents
// fileSystem/edited/custom states — those are "not pinnable" (§4.2).
type PinKind uint8

const (
	PinVersion PinKind = iota
	PinRevision
	PinBranch
)

type PinState struct {
	Kind     PinKind
	Version  gpsmodel.Version  // PinVersion
	Branch   string            // PinBranch
	Revision gpsmodel.Revision // PinRevision, PinBranch; optional for PinVersion
}

func (p PinState) HasRevision() bool { return p.Revision != "" }

// ResolvedPackage is a durable pin: {packageRef, state, originHash?} (§3).
type ResolvedPackage struct {
	PackageRef PackageReference
	State      PinState
	// No per-pin origin hash is carried; the only origin hash recorded is
	// the top-level one the pin store keeps (store.PinStore.OriginHash).
}

// BoundVersion is the resolver's output discriminant (§3).
type BoundKind uint8

const (
	BoundExcluded BoundKind = iota
	BoundUnversioned
	BoundVersion_
	BoundRevision
)

type BoundVersion struct {
	Kind     BoundKind
	Version  gpsmodel.Version
	Revision gpsmodel.Revision
	Branch   string // optional, set iff branch-tracking
}

func (b BoundVersion) HasBranch() bool { return b.Kind == BoundRevision && b.Branch != "" }

// DependencyResolverBinding is one resolver output record (§3).
type DependencyResolverBinding struct {
	Package      PackageReference
	BoundVersion BoundVersion
	Products     []string
}

// Requirement mirrors a PackageStateChange's desired state (§3).
type RequirementKind uint8

const (
	RequireVersion RequirementKind = iota
	RequireRevision
	RequireUnversioned
)

type Requirement struct {
	Kind     RequirementKind
	Version  gpsmodel.Version
	Revision gpsmodel.Revision
	Branch   string
}

// PackageStateChange is the reconciler's tagged output (§3).
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeUpdated
	ChangeUnchanged
	ChangeRemoved
)

type PackageStateChange struct {
	Kind           ChangeKind
	Requirement    Requirement
	ProductFilter  []string
}

func (c ChangeKind) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeUnchanged:
		return "unchanged"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ReconcileEntry pairs a reference with its classification, preserving the
// ordering the reconciler emits (§4.5: input order, removals last).
type ReconcileEntry struct {
	Ref    PackageReference
	Change PackageStateChange
}
