// Package gpsmodel wraps version and revision identifiers used throughout
// the resolution core. It leans on Masterminds/semver for parsing and
// ordering semantic versions, the same library golang-dep's gps package
// builds its constraint solving on.
package gpsmodel

import (
	"github.com/Masterminds/semver"
)

// Revision is an immutable source-control identifier: a git/hg/bzr/svn
// commit id. It is always comparable by exact string equality.
type Revision string

func (r Revision) String() string { return string(r) }

// Version is a concrete version bound to a package, optionally semantic.
type Version struct {
	raw    string
	semver *semver.Version
}

// NewVersion parses raw as a version, preferring semver when possible and
// falling back to an opaque string otherwise (matches deduceConstraint's
// "always semver if we can" rule in golang-dep).
func NewVersion(raw string) Version {
	v := Version{raw: raw}
	if sv, err := semver.NewVersion(raw); err == nil {
		v.semver = sv
	}
	return v
}

func (v Version) String() string { return v.raw }

// IsSemver reports whether the version parsed as semantic.
func (v Version) IsSemver() bool { return v.semver != nil }

// Less orders two versions; non-semver versions fall back to raw string
// comparison so the ordering stays total (used only for display/diagnostics,
// never for solver decisions — that's the resolver's job).
func (v Version) Less(o Version) bool {
	if v.semver != nil && o.semver != nil {
		return v.semver.LessThan(o.semver)
	}
	return v.raw < o.raw
}

// Equal reports whether v and o name the same version. Both sides compare
// by semver when they parsed as such, so "1.2.0" and "v1.2.0" are equal;
// otherwise it falls back to raw string equality.
func (v Version) Equal(o Version) bool {
	if v.semver != nil && o.semver != nil {
		return v.semver.Equal(o.semver)
	}
	return v.raw == o.raw
}
