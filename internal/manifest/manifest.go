// Package manifest defines the out-of-scope manifest-loading collaborators
// the orchestrator consumes (§6 "Consumed interfaces"): loadRootManifests
// and loadDependencyManifests. Parsing the manifest file format itself is
// a Non-goal (§6); this package only names the shape callers depend on,
// plus a minimal in-memory implementation for tests.
package manifest

import (
	"sort"

	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// Manifest is the minimal per-package manifest shape the core needs:
// its declared dependency constraints and the products it exposes.
type Manifest struct {
	Identity     model.PackageIdentity
	Raw          []byte // the exact bytes loaded from disk, for origin hashing
	Dependencies []resolver.Constraint
	Products     []string
}

// RootLoader loads the manifests named by an explicit set of root paths.
type RootLoader interface {
	LoadRootManifests(paths []string) (map[model.PackageIdentity]Manifest, error)
}

// DependencyManifests bundles everything loadDependencyManifests answers
// (§6): constraints declared by already-loaded dependencies, constraints
// contributed by edited overrides, packages referenced but not yet
// materialized, and the full set of packages the graph currently requires.
type DependencyManifests struct {
	DependencyConstraints     []resolver.Constraint
	EditedPackagesConstraints []resolver.Constraint
	MissingPackages           []model.PackageReference
	RequiredPackages          []model.PackageReference
}

// DependencyLoader loads the transitive dependency graph's manifests given
// a graph root and whether newly-discovered packages should be
// auto-added to the managed set.
type DependencyLoader interface {
	LoadDependencyManifests(root model.PackageReference, autoAdd bool) (DependencyManifests, error)
}

// Loader composes both collaborators; the orchestrator depends only on
// this interface so tests can supply an in-memory double.
type Loader interface {
	RootLoader
	DependencyLoader
}

// RequiredIdentities extracts the identity set from RequiredPackages, used
// by the missing-packages invariant check (§4.9, P1).
func (d DependencyManifests) RequiredIdentities() map[model.PackageIdentity]bool {
	out := make(map[model.PackageIdentity]bool, len(d.RequiredPackages))
	for _, p := range d.RequiredPackages {
		out[p.Identity] = true
	}
	return out
}

// OrderedManifestBytes returns the manifests' raw bytes sorted by identity,
// the deterministic ordering the origin hash (C8) is computed over. The
// order in which root paths were listed is not reflected.
func OrderedManifestBytes(manifests map[model.PackageIdentity]Manifest) [][]byte {
	ids := make([]model.PackageIdentity, 0, len(manifests))
	for id := range manifests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, manifests[id].Raw)
	}
	return out
}
