// Package container defines the Container Provider interface (C3, §4.3) the
// core consumes, plus a reference implementation backed by source-control
// checkouts (github.com/Masterminds/vcs) with a BoltDB-cached version index
// (github.com/boltdb/bolt), mirroring golang-dep's gps.SourceManager /
// gps/source_cache_bolt.go pairing. The core itself only ever programs
// against the Provider/Container interfaces below — the reference
// implementation in this package is an adapter the orchestrator is wired to
// at the composition root (cmd/wspkg), not a dependency of the core logic.
package container

import (
	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// UpdateStrategyKind discriminates how aggressively a container should
// refresh upstream state (§4.3, GLOSSARY).
type UpdateStrategyKind uint8

const (
	StrategyNever UpdateStrategyKind = iota
	StrategyIfNeeded
	StrategyAlways
)

// UpdateStrategy is {never | ifNeeded(revision) | always}.
type UpdateStrategy struct {
	Kind     UpdateStrategyKind
	Revision gpsmodel.Revision // set iff Kind == StrategyIfNeeded
}

func Never() UpdateStrategy { return UpdateStrategy{Kind: StrategyNever} }
func Always() UpdateStrategy { return UpdateStrategy{Kind: StrategyAlways} }
func IfNeeded(rev gpsmodel.Revision) UpdateStrategy {
	return UpdateStrategy{Kind: StrategyIfNeeded, Revision: rev}
}

// ContainerKind discriminates the three capability sets a Container can
// have (§9 "Container polymorphism").
type ContainerKind uint8

const (
	KindSourceControl ContainerKind = iota
	KindRegistry
	KindCustom
)

// Tag names a source-control tag alongside the revision it points at.
type Tag struct {
	Name     string
	Revision gpsmodel.Revision
}

// Container is the capability surface the core consumes from a package
// handle, regardless of which of the three kinds backs it (§4.3).
type Container interface {
	Kind() ContainerKind

	// GetTag resolves a version to the source-control tag that carries it,
	// or (nil, nil) if the container has no matching tag (e.g. registry or
	// custom containers, which have no tags at all).
	GetTag(version gpsmodel.Version) (*Tag, error)

	// GetRevision resolves a tag name or a bare identifier (branch name or
	// revision-looking string) to its canonical revision.
	GetRevision(identifier string) (gpsmodel.Revision, error)

	// CheckIntegrity verifies that the content at revision actually
	// corresponds to the claimed version, e.g. matching a published
	// checksum. A no-op for containers without a verifiable manifest.
	CheckIntegrity(version gpsmodel.Version, revision gpsmodel.Revision) error

	// Checkout materializes the container's content at the given checkout
	// state into dir. Registry/custom containers implement this as an
	// archive download/extraction; source-control containers as a checkout.
	Checkout(dir string, state model.CheckoutState) error

	// Retrieve is used only by custom containers (§4.6): fetch version into
	// dir and return the concrete path the dependency now lives at.
	Retrieve(dir string, version gpsmodel.Version) (string, error)

	// Download is used only by registry containers: fetch an archive for
	// version into dir.
	Download(dir string, version gpsmodel.Version) error
}

// Scope is an opaque cancellation/tracing scope threaded through provider
// calls (analogous to gps.ProjectAnalyzer's trace logger, or a
// context.Context restricted to this one purpose so the provider interface
// doesn't need to import context directly in every signature below).
type Scope interface {
	Done() <-chan struct{}
}

// Provider is the C3 consumed interface (§4.3). Implementations must be
// safe for concurrent calls with distinct packages; concurrent calls for
// the same package must be coalesced (the reference implementation in this
// package does so via a per-identity singleflight-style mutex map).
type Provider interface {
	GetContainer(ref model.PackageReference, strategy UpdateStrategy, scope Scope) (Container, error)
}
