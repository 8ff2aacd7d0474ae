package manifest

import (
	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/model"
)

// MemoryLoader is a fixture-driven Loader: tests populate Roots and Graph
// ahead of time, and LoadRootManifests/LoadDependencyManifests simply
// replay what was configured. It never touches disk.
type MemoryLoader struct {
	Roots map[string]Manifest // keyed by path
	Graph DependencyManifests
}

func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{Roots: make(map[string]Manifest)}
}

func (m *MemoryLoader) LoadRootManifests(paths []string) (map[model.PackageIdentity]Manifest, error) {
	out := make(map[model.PackageIdentity]Manifest, len(paths))
	for _, p := range paths {
		man, ok := m.Roots[p]
		if !ok {
			return nil, errors.Errorf("no root manifest fixture configured for path %q", p)
		}
		out[man.Identity] = man
	}
	return out, nil
}

func (m *MemoryLoader) LoadDependencyManifests(root model.PackageReference, autoAdd bool) (DependencyManifests, error) {
	return m.Graph, nil
}
