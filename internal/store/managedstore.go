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

// ManagedStoreName is the on-disk filename for the managed-dependency
// database (C1).
const ManagedStoreName = "managed.json"

// ManagedStore is the C1 component: a durable map of package identity to
// on-disk state. It is guarded by a single-writer mutex (§5): reads produce
// immutable snapshots, writes serialize through Put/Delete.
type ManagedStore struct {
	mu   sync.RWMutex
	path string
	deps map[model.PackageIdentity]model.ManagedDependency

	fileLock *flock.Flock
}

type rawManagedStore struct {
	Deps []rawManagedItem `json:"dependencies"`
}

type rawManagedItem struct {
	Identity string `json:"identity"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Subpath  string `json:"subpath,omitempty"`

	State    string `json:"state"`
	Version  string `json:"version,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision string `json:"revision,omitempty"`
	Path     string `json:"path,omitempty"`

	BasedOnIdentity string `json:"basedOnIdentity,omitempty"`
	UnmanagedPath   string `json:"unmanagedPath,omitempty"`
}

// LoadManagedStore reads path, returning an empty store if it does not
// exist (a fresh workspace has materialized nothing yet).
func LoadManagedStore(path string) (*ManagedStore, error) {
	s := &ManagedStore{
		path:     path,
		deps:     make(map[model.PackageIdentity]model.ManagedDependency),
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

func (s *ManagedStore) decode(r io.Reader) error {
	var raw rawManagedStore
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return err
	}

	// basedOnWanted records, for each edited dependency's identity, which
	// other identity in this same batch it claims as its basedOn original.
	// Resolved in a second pass once every record has been decoded, since
	// the referenced entry may appear later in the slice.
	basedOnWanted := make(map[model.PackageIdentity]string)

	for _, item := range raw.Deps {
		ref := model.PackageReference{Identity: model.PackageIdentity(item.Identity), Location: item.Location}
		md := model.ManagedDependency{PackageRef: ref, Subpath: item.Subpath}

		switch item.State {
		case "sourceControlCheckout":
			md.State.Kind = uint8(model.ManagedSourceControlCheckout)
			switch {
			case item.Version != "":
				md.State.Checkout = model.VersionCheckout(gpsmodel.NewVersion(item.Version), gpsmodel.Revision(item.Revision))
			case item.Branch != "":
				md.State.Checkout = model.BranchCheckout(item.Branch, gpsmodel.Revision(item.Revision))
			default:
				md.State.Checkout = model.RevisionCheckout(gpsmodel.Revision(item.Revision))
			}
		case "registryDownload":
			md.State.Kind = uint8(model.ManagedRegistryDownload)
			md.State.Version = gpsmodel.NewVersion(item.Version)
		case "fileSystem":
			md.State.Kind = uint8(model.ManagedFileSystem)
			md.State.Path = item.Path
		case "custom":
			md.State.Kind = uint8(model.ManagedCustom)
			md.State.Version = gpsmodel.NewVersion(item.Version)
			md.State.Path = item.Path
		case "edited":
			md.State.Kind = uint8(model.ManagedEdited)
			md.State.UnmanagedPath = item.UnmanagedPath
			if item.BasedOnIdentity != "" {
				basedOnWanted[ref.Identity] = item.BasedOnIdentity
			}
		default:
			return errors.Errorf("unrecognized managed state %q for %s", item.State, item.Identity)
		}

		s.deps[ref.Identity] = md
	}

	for id, basedOnID := range basedOnWanted {
		if base, ok := s.deps[model.PackageIdentity(basedOnID)]; ok {
			md := s.deps[id]
			baseCopy := base
			md.State.BasedOn = &baseCopy
			s.deps[id] = md
		}
	}
	return nil
}

// All returns a snapshot slice of every managed dependency, sorted by
// identity for deterministic iteration.
func (s *ManagedStore) All() []model.ManagedDependency {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ManagedDependency, 0, len(s.deps))
	for _, d := range s.deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

// Get looks up a managed dependency by identity.
func (s *ManagedStore) Get(id model.PackageIdentity) (model.ManagedDependency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deps[id]
	return d, ok
}

// GetComparingLocation mirrors PinStore.GetComparingLocation for C1.
func (s *ManagedStore) GetComparingLocation(ref model.PackageReference) (model.ManagedDependency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deps[ref.Identity]
	if !ok || d.PackageRef.Location != ref.Location {
		return model.ManagedDependency{}, false
	}
	return d, true
}

// Put records (or overwrites) a managed dependency. Invariant: identity is
// the primary key (§3) — a second Put for the same identity replaces the
// prior entry rather than creating a duplicate.
func (s *ManagedStore) Put(dep model.ManagedDependency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[dep.Identity()] = dep
}

// Delete removes a managed dependency's record. Callers are responsible for
// removing the on-disk artifact directory separately (internal/fs); the
// store only tracks the logical record.
func (s *ManagedStore) Delete(id model.PackageIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deps, id)
}

// Save persists the store atomically under the cross-process file lock.
func (s *ManagedStore) Save() error {
	locked, err := s.fileLock.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquire managed store lock")
	}
	if !locked {
		return errors.New("managed store is locked by another process")
	}
	defer s.fileLock.Unlock()

	buf, err := s.marshal()
	if err != nil {
		return errors.Wrap(err, "marshal managed store")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".managedstore-*")
	if err != nil {
		return errors.Wrap(err, "create temp file for managed store")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "write temp managed store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp managed store")
	}

	return errors.Wrap(fs.RenameWithFallback(tmpPath, s.path), "install managed store")
}

func (s *ManagedStore) marshal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.deps))
	for id := range s.deps {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	raw := rawManagedStore{Deps: make([]rawManagedItem, 0, len(ids))}
	for _, id := range ids {
		d := s.deps[model.PackageIdentity(id)]
		item := rawManagedItem{
			Identity: string(d.PackageRef.Identity),
			Kind:     d.PackageRef.Kind.String(),
			Location: d.PackageRef.Location,
			Subpath:  d.Subpath,
			State:    model.ManagedKind(d.State.Kind).String(),
		}
		switch model.ManagedKind(d.State.Kind) {
		case model.ManagedSourceControlCheckout:
			item.Revision = string(d.State.Checkout.Revision)
			switch d.State.Checkout.Kind {
			case model.CheckoutVersion:
				item.Version = d.State.Checkout.Version.String()
			case model.CheckoutBranch:
				item.Branch = d.State.Checkout.Branch
			}
		case model.ManagedRegistryDownload:
			item.Version = d.State.Version.String()
		case model.ManagedFileSystem:
			item.Path = d.State.Path
		case model.ManagedCustom:
			item.Version = d.State.Version.String()
			item.Path = d.State.Path
		case model.ManagedEdited:
			item.UnmanagedPath = d.State.UnmanagedPath
			if d.State.BasedOn != nil {
				item.BasedOnIdentity = string(d.State.BasedOn.Identity())
			}
		}
		raw.Deps = append(raw.Deps, item)
	}

	var buf []byte
	enc := json.NewEncoder(newAppender(&buf))
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return buf, nil
}
