package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/manifest"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// manifestFileName is this module's own minimal manifest format; parsing an
// actual ecosystem's manifest syntax is out of scope (the core depends only
// on manifest.Loader), so this is just enough to drive the CLI end-to-end.
const manifestFileName = "workspace.manifest.json"

type jsonManifest struct {
	Identity     string                    `json:"identity"`
	Dependencies []jsonManifestConstraint  `json:"dependencies"`
	Products     []string                  `json:"products"`
}

type jsonManifestConstraint struct {
	Identity   string `json:"identity"`
	Location   string `json:"location"`
	Constraint string `json:"constraint,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Revision   string `json:"revision,omitempty"`
}

// fileManifestLoader loads root and dependency manifests from
// workspace.manifest.json files found under each root path.
type fileManifestLoader struct{}

func (fileManifestLoader) LoadRootManifests(paths []string) (map[model.PackageIdentity]manifest.Manifest, error) {
	out := make(map[model.PackageIdentity]manifest.Manifest, len(paths))
	for _, p := range paths {
		m, err := loadManifestFile(filepath.Join(p, manifestFileName))
		if err != nil {
			return nil, errors.Wrapf(err, "load root manifest at %s", p)
		}
		out[m.Identity] = m
	}
	return out, nil
}

// LoadDependencyManifests only ever sees manifests this process already
// loaded as roots; a real implementation would walk the transitive graph
// fetching each dependency's own manifest, which needs the Container
// Provider this package wires separately.
func (l fileManifestLoader) LoadDependencyManifests(root model.PackageReference, autoAdd bool) (manifest.DependencyManifests, error) {
	m, err := loadManifestFile(filepath.Join(".", manifestFileName))
	if err != nil {
		return manifest.DependencyManifests{}, err
	}

	var required []model.PackageReference
	for _, c := range m.Dependencies {
		required = append(required, c.Package)
	}

	return manifest.DependencyManifests{
		DependencyConstraints: m.Dependencies,
		RequiredPackages:      required,
	}, nil
}

func loadManifestFile(path string) (manifest.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return manifest.Manifest{}, errors.Wrapf(err, "read %s", path)
	}

	var jm jsonManifest
	if err := json.Unmarshal(raw, &jm); err != nil {
		return manifest.Manifest{}, errors.Wrapf(err, "parse %s", path)
	}

	m := manifest.Manifest{
		Identity: model.PackageIdentity(jm.Identity),
		Raw:      raw,
		Products: jm.Products,
	}
	for _, c := range jm.Dependencies {
		req := model.Requirement{Kind: model.RequireUnversioned}
		switch {
		case c.Revision != "":
			req = model.Requirement{Kind: model.RequireRevision, Revision: gpsmodel.Revision(c.Revision), Branch: c.Branch}
		case c.Branch != "":
			req = model.Requirement{Kind: model.RequireRevision, Branch: c.Branch}
		case c.Constraint != "":
			req = model.Requirement{Kind: model.RequireVersion, Version: gpsmodel.NewVersion(c.Constraint)}
		}
		m.Dependencies = append(m.Dependencies, resolver.Constraint{
			Package: model.PackageReference{Identity: model.PackageIdentity(c.Identity), Location: c.Location},
			Require: req,
			Source:  resolver.SourceManifest,
		})
	}
	return m, nil
}
