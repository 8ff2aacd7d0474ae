// Package feedback implements the delegate callback sink (§6 "Delegate
// callbacks"): willResolveDependencies, didResolveDependencies,
// willUpdateDependencies, didUpdateDependencies, willComputeVersion,
// didComputeVersion, dependenciesUpToDate. It mirrors golang-dep's
// internal/feedback.Feedback — a thin adapter over a Loggers-style sink
// that the orchestrator calls at fixed points in a resolve cycle.
package feedback

import (
	"sync"
	"time"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// Delegate receives the resolve-cycle events. Implementations should not
// block; the orchestrator calls these synchronously from the driver task
// (§5 scheduling model).
type Delegate interface {
	WillResolveDependencies(reason string)
	DidResolveDependencies(duration time.Duration)
	WillUpdateDependencies()
	DidUpdateDependencies(duration time.Duration)
	WillComputeVersion(pkg model.PackageReference)
	DidComputeVersion(pkg model.PackageReference, version gpsmodel.Version, duration time.Duration)
	DependenciesUpToDate()
}

// NopDelegate discards every event; useful as a default when the caller
// configures no observer.
type NopDelegate struct{}

func (NopDelegate) WillResolveDependencies(string)                                    {}
func (NopDelegate) DidResolveDependencies(time.Duration)                              {}
func (NopDelegate) WillUpdateDependencies()                                           {}
func (NopDelegate) DidUpdateDependencies(time.Duration)                               {}
func (NopDelegate) WillComputeVersion(model.PackageReference)                         {}
func (NopDelegate) DidComputeVersion(model.PackageReference, gpsmodel.Version, time.Duration) {}
func (NopDelegate) DependenciesUpToDate()                                             {}

// OnceGate ensures willComputeVersion fires at most once per package
// identity across a single cycle, even if the solver revisits a package
// across multiple version ranges (§9 "concurrent map for one-shot delegate
// fan-out"). Safe for concurrent use from the checkout executor's parallel
// install tasks.
type OnceGate struct {
	mu   sync.Mutex
	seen map[model.PackageIdentity]bool
}

// Touch reports whether this is the first touch for id within this gate's
// lifetime; the gate should be recreated per resolve cycle.
func (g *OnceGate) Touch(id model.PackageIdentity) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[model.PackageIdentity]bool)
	}
	if g.seen[id] {
		return false
	}
	g.seen[id] = true
	return true
}

// Sink wraps a Delegate with the OnceGate so WillComputeVersion is safe to
// call redundantly from solver internals; everything else passes through.
type Sink struct {
	Delegate Delegate
	gate     OnceGate
}

func NewSink(d Delegate) *Sink {
	if d == nil {
		d = NopDelegate{}
	}
	return &Sink{Delegate: d}
}

func (s *Sink) WillResolveDependencies(reason string) { s.Delegate.WillResolveDependencies(reason) }
func (s *Sink) DidResolveDependencies(d time.Duration) { s.Delegate.DidResolveDependencies(d) }
func (s *Sink) WillUpdateDependencies()                { s.Delegate.WillUpdateDependencies() }
func (s *Sink) DidUpdateDependencies(d time.Duration)  { s.Delegate.DidUpdateDependencies(d) }
func (s *Sink) DependenciesUpToDate()                  { s.Delegate.DependenciesUpToDate() }

func (s *Sink) WillComputeVersion(pkg model.PackageReference) {
	if s.gate.Touch(pkg.Identity) {
		s.Delegate.WillComputeVersion(pkg)
	}
}

func (s *Sink) DidComputeVersion(pkg model.PackageReference, version gpsmodel.Version, duration time.Duration) {
	s.Delegate.DidComputeVersion(pkg, version, duration)
}
