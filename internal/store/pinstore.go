// Package store implements the two durable records the core owns outright:
// the ResolvedPackagesStore (C2, the lock file) and the ManagedDependency
// store (C1, the on-disk materialized-dependency set). Both follow
// golang-dep's lock.go persistence shape — a stable, sorted JSON
// serialization written atomically via temp-file-plus-rename — with an
// added cross-process file lock (github.com/theckman/go-flock) around the
// write path, since §5 requires the pin store to be "owned exclusively by
// the orchestrator between load and save; no concurrent writers."
package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/solvepkg/wspkg/internal/fs"
	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// PinStoreName is the on-disk filename for the resolved-packages store,
// named after Swift Package Manager's equivalent artifact per the GLOSSARY.
const PinStoreName = "Package.resolved"

// PinStore is the C2 component: identity -> ResolvedPackage plus a
// top-level origin hash and minimum-tools-version (§3, §4.2).
type PinStore struct {
	mu sync.RWMutex

	path                string
	OriginHash          string
	MinimumToolsVersion string
	pins                map[model.PackageIdentity]model.ResolvedPackage

	fileLock *flock.Flock
}

type rawPinStore struct {
	OriginHash          string       `json:"originHash,omitempty"`
	MinimumToolsVersion string       `json:"minimumToolsVersion,omitempty"`
	Pins                []rawPinItem `json:"pins"`
}

type rawPinItem struct {
	Identity string `json:"identity"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	State    string `json:"state"` // version | revision | branch
	Version  string `json:"version,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision string `json:"revision,omitempty"`
}

// LoadPinStore reads path (if present) and returns an empty-but-valid store
// if it does not exist yet (I3: originHash is absent iff never written from
// a rooted resolution).
func LoadPinStore(path string) (*PinStore, error) {
	s := &PinStore{
		path:     path,
		pins:     make(map[model.PackageIdentity]model.ResolvedPackage),
		fileLock: flock.NewFlock(path + ".lock"),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if err := s.decode(f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return s, nil
}

func (s *PinStore) decode(r io.Reader) error {
	var raw rawPinStore
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return err
	}

	s.OriginHash = raw.OriginHash
	s.MinimumToolsVersion = raw.MinimumToolsVersion

	for _, item := range raw.Pins {
		ref := model.PackageReference{
			Identity: model.PackageIdentity(item.Identity),
			Location: item.Location,
		}

		var ps model.PinState
		switch item.State {
		case "version":
			ps = model.PinState{Kind: model.PinVersion, Version: gpsmodel.NewVersion(item.Version), Revision: gpsmodel.Revision(item.Revision)}
		case "branch":
			ps = model.PinState{Kind: model.PinBranch, Branch: item.Branch, Revision: gpsmodel.Revision(item.Revision)}
		case "revision":
			ps = model.PinState{Kind: model.PinRevision, Revision: gpsmodel.Revision(item.Revision)}
		default:
			return errors.Errorf("unrecognized pin state %q for %s", item.State, item.Identity)
		}

		s.pins[ref.Identity] = model.ResolvedPackage{PackageRef: ref, State: ps}
	}
	return nil
}

// Pins returns every currently stored resolved package.
func (s *PinStore) Pins() []model.ResolvedPackage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ResolvedPackage, 0, len(s.pins))
	for _, p := range s.pins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageRef.Identity < out[j].PackageRef.Identity })
	return out
}

// Get looks up a pin by identity alone (§4.2).
func (s *PinStore) Get(id model.PackageIdentity) (model.ResolvedPackage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pins[id]
	return p, ok
}

// GetComparingLocation returns a pin iff both identity matches and the
// stored location equals ref.Location — detects a package whose source URL
// moved while its identity stayed stable (§4.2).
func (s *PinStore) GetComparingLocation(ref model.PackageReference) (model.ResolvedPackage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pins[ref.Identity]
	if !ok || p.PackageRef.Location != ref.Location {
		return model.ResolvedPackage{}, false
	}
	return p, true
}

// Add derives a PinState from a ManagedDependency's current state and
// records it, per the derivation rule in §4.2. fileSystem/edited/custom
// states are not pinnable and are silently skipped.
func (s *PinStore) Add(dep model.ManagedDependency) {
	var ps model.PinState
	switch model.ManagedKind(dep.State.Kind) {
	case model.ManagedSourceControlCheckout:
		switch dep.State.Checkout.Kind {
		case model.CheckoutVersion:
			ps = model.PinState{Kind: model.PinVersion, Version: dep.State.Checkout.Version, Revision: dep.State.Checkout.Revision}
		case model.CheckoutBranch:
			ps = model.PinState{Kind: model.PinBranch, Branch: dep.State.Checkout.Branch, Revision: dep.State.Checkout.Revision}
		case model.CheckoutRevision:
			ps = model.PinState{Kind: model.PinRevision, Revision: dep.State.Checkout.Revision}
		}
	case model.ManagedRegistryDownload:
		ps = model.PinState{Kind: model.PinVersion, Version: dep.State.Version}
	default:
		// fileSystem, edited, custom: not pinnable.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[dep.Identity()] = model.ResolvedPackage{PackageRef: dep.PackageRef, State: ps}
}

// CurrentOriginHash returns the hash recorded on the last Save, or "" if
// the store has never been saved.
func (s *PinStore) CurrentOriginHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.OriginHash
}

// Remove drops a pin by identity.
func (s *PinStore) Remove(id model.PackageIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pins, id)
}

// Save writes the store atomically: acquire the cross-process file lock,
// serialize sorted by identity to a temp file, then rename into place. The
// orchestrator calls this at most once per resolve cycle, and only after
// every Phase-B install succeeded (P2).
func (s *PinStore) Save(originHash, minimumToolsVersion string) error {
	locked, err := s.fileLock.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquire pin store lock")
	}
	if !locked {
		return errors.New("pin store is locked by another process")
	}
	defer s.fileLock.Unlock()

	s.mu.Lock()
	s.OriginHash = originHash
	s.MinimumToolsVersion = minimumToolsVersion
	s.mu.Unlock()

	buf, err := s.marshal()
	if err != nil {
		return errors.Wrap(err, "marshal pin store")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pinstore-*")
	if err != nil {
		return errors.Wrap(err, "create temp file for pin store")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "write temp pin store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp pin store")
	}

	return errors.Wrap(fs.RenameWithFallback(tmpPath, s.path), "install pin store")
}

func (s *PinStore) marshal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw := rawPinStore{
		OriginHash:          s.OriginHash,
		MinimumToolsVersion: s.MinimumToolsVersion,
		Pins:                make([]rawPinItem, 0, len(s.pins)),
	}

	ids := make([]string, 0, len(s.pins))
	for id := range s.pins {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := s.pins[model.PackageIdentity(id)]
		item := rawPinItem{
			Identity: string(p.PackageRef.Identity),
			Kind:     p.PackageRef.Kind.String(),
			Location: p.PackageRef.Location,
			Revision: string(p.State.Revision),
		}
		switch p.State.Kind {
		case model.PinVersion:
			item.State = "version"
			item.Version = p.State.Version.String()
		case model.PinBranch:
			item.State = "branch"
			item.Branch = p.State.Branch
		case model.PinRevision:
			item.State = "revision"
		}
		raw.Pins = append(raw.Pins, item)
	}

	var buf []byte
	enc := json.NewEncoder(newAppender(&buf))
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return buf, nil
}

// newAppender adapts a []byte slice to io.Writer for the JSON encoder.
type appender struct{ buf *[]byte }

func newAppender(buf *[]byte) io.Writer { return appender{buf} }

func (a appender) Write(p []byte) (int, error) {
	*a.buf = append(*a.buf, p...)
	return len(p), nil
}
