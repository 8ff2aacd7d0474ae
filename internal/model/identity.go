// Package model holds the data types shared across the workspace resolution
// core: package identities and references, the managed-dependency and
// resolved-pin state machines, and the resolver's input/output shapes.
//
// Everything here is a plain value type or a closed tagged union; the core
// never grows new variants at runtime, so exhaustive switches are safe.
package model

import "strings"

// PackageIdentity is a canonicalized package name: case-folded and with any
// scheme prefix stripped, so that "GitHub.com/Foo/Bar" and
// "https://github.com/foo/bar" refer to the same package.
type PackageIdentity string

// CanonicalizeIdentity folds a raw location or name into a PackageIdentity.
func CanonicalizeIdentity(raw string) PackageIdentity {
	s := raw
	for _, scheme := range []string{"https://", "http://", "git://", "ssh://", "git+ssh://"} {
		if strings.HasPrefix(strings.ToLower(s), scheme) {
			s = s[len(scheme):]
			break
		}
	}
	s = strings.TrimSuffix(s, ".git")
	return PackageIdentity(strings.ToLower(s))
}

// ReferenceKind discriminates how a PackageReference was declared.
type ReferenceKind uint8

const (
	KindRoot ReferenceKind = iota
	KindFileSystem
	KindLocalSourceControl
	KindRemoteSourceControl
	KindRegistry
	KindEdited
)

func (k ReferenceKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindFileSystem:
		return "fileSystem"
	case KindLocalSourceControl:
		return "localSourceControl"
	case KindRemoteSourceControl:
		return "remoteSourceControl"
	case KindRegistry:
		return "registry"
	case KindEdited:
		return "edited"
	default:
		return "unknown"
	}
}

// PackageReference is {identity, kind, location}. Two references with the
// same identity but a different Location are distinct for change detection,
// but share the identity key in the pin store (§3).
type PackageReference struct {
	Identity PackageIdentity
	Kind     ReferenceKind
	Location string
}

// SameLocation reports whether two references name the same identity and
// agree on location — used by the pin store's "comparingLocation" lookup.
func (r PackageReference) SameLocation(o PackageReference) bool {
	return r.Identity == o.Identity && r.Location == o.Location
}
