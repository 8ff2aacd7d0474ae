package container

import (
	"os"
	"path/filepath"
	"sync"

	vcslib "github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// SCMProvider is the reference source-control implementation of Provider.
// Each package gets a single persistent mirror checkout under cacheRoot;
// concurrent GetContainer calls for the same identity are serialized by the
// per-identity lock in coalescer, so at most one fetch per identity is in
// flight at a time; each call still runs its own clone/update check.
type SCMProvider struct {
	cacheRoot string
	cache     *VersionCache // may be nil: caching is optional

	coalescer
}

// NewSCMProvider roots package mirrors under cacheRoot (e.g.
// "$WSPKG_HOME/sources"). cache may be nil to disable the BoltDB-backed
// version index.
func NewSCMProvider(cacheRoot string, cache *VersionCache) *SCMProvider {
	return &SCMProvider{cacheRoot: cacheRoot, cache: cache}
}

func (p *SCMProvider) GetContainer(ref model.PackageReference, strategy UpdateStrategy, scope Scope) (Container, error) {
	unlock := p.lockIdentity(ref.Identity)
	defer unlock()

	dir := filepath.Join(p.cacheRoot, sanitize(string(ref.Identity)))
	remote := ref.Location

	repo, err := vcslib.NewRepo(remote, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "create vcs handle for %s", ref.Identity)
	}

	if !repo.CheckLocal() {
		if err := repo.Get(); err != nil {
			return nil, errors.Wrapf(err, "clone %s", ref.Identity)
		}
	} else if shouldRefresh(strategy) {
		if err := repo.Update(); err != nil {
			return nil, errors.Wrapf(err, "update %s", ref.Identity)
		}
	}

	c := &scmContainer{ref: ref, repo: repo, cache: p.cache}
	return c, nil
}

func shouldRefresh(s UpdateStrategy) bool {
	switch s.Kind {
	case StrategyAlways:
		return true
	case StrategyIfNeeded:
		return s.Revision == "" // refresh only if we don't already know the revision
	default:
		return false
	}
}

func sanitize(identity string) string {
	return filepath.FromSlash(identity)
}

// coalescer serializes concurrent provider calls for the same identity
// while letting distinct identities proceed in parallel, per §4.3's
// "concurrent calls for the same package must be coalesced."
type coalescer struct {
	mu    sync.Mutex
	locks map[model.PackageIdentity]*sync.Mutex
}

func (c *coalescer) lockIdentity(id model.PackageIdentity) (unlock func()) {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[model.PackageIdentity]*sync.Mutex)
	}
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// scmContainer is the Container implementation backed by a vcs.Repo.
type scmContainer struct {
	ref   model.PackageReference
	repo  vcslib.Repo
	cache *VersionCache
}

func (c *scmContainer) Kind() ContainerKind { return KindSourceControl }

func (c *scmContainer) GetTag(version gpsmodel.Version) (*Tag, error) {
	if c.cache != nil {
		if t, ok := c.cache.GetTag(c.ref.Identity, version); ok {
			return t, nil
		}
	}

	tags, err := c.repo.Tags()
	if err != nil {
		return nil, errors.Wrapf(err, "list tags for %s", c.ref.Identity)
	}
	for _, name := range tags {
		if name == version.String() || name == "v"+version.String() {
			rev, err := c.repo.CommitInfo(name)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve tag %s for %s", name, c.ref.Identity)
			}
			tag := &Tag{Name: name, Revision: gpsmodel.Revision(rev.Commit)}
			if c.cache != nil {
				c.cache.PutTag(c.ref.Identity, version, tag)
			}
			return tag, nil
		}
	}
	return nil, nil
}

func (c *scmContainer) GetRevision(identifier string) (gpsmodel.Revision, error) {
	if c.cache != nil {
		if rev, ok := c.cache.GetRevision(c.ref.Identity, identifier); ok {
			return rev, nil
		}
	}

	info, err := c.repo.CommitInfo(identifier)
	if err != nil {
		return "", errors.Wrapf(err, "resolve revision %q for %s", identifier, c.ref.Identity)
	}
	rev := gpsmodel.Revision(info.Commit)
	if c.cache != nil {
		c.cache.PutRevision(c.ref.Identity, identifier, rev)
	}
	return rev, nil
}

func (c *scmContainer) CheckIntegrity(version gpsmodel.Version, revision gpsmodel.Revision) error {
	tag, err := c.GetTag(version)
	if err != nil {
		return err
	}
	if tag == nil {
		return errors.Errorf("no tag found for version %s of %s", version, c.ref.Identity)
	}
	if tag.Revision != revision {
		return errors.Errorf("integrity check failed for %s@%s: tag resolves to %s, expected %s", c.ref.Identity, version, tag.Revision, revision)
	}
	return nil
}

func (c *scmContainer) Checkout(dir string, state model.CheckoutState) error {
	var target string
	switch state.Kind {
	case model.CheckoutVersion:
		target = state.Version.String()
	case model.CheckoutBranch:
		target = state.Branch
	default:
		target = string(state.Revision)
	}

	if err := c.repo.UpdateVersion(target); err != nil {
		return errors.Wrapf(err, "checkout %s@%s", c.ref.Identity, target)
	}
	if dir == c.repo.LocalPath() {
		return nil
	}
	return errors.Wrap(exportTree(c.repo, dir), "export checkout tree")
}

func exportTree(repo vcslib.Repo, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	return repo.ExportDir(dir)
}

func (c *scmContainer) Retrieve(dir string, version gpsmodel.Version) (string, error) {
	return "", errors.New("Retrieve is only valid for custom containers")
}

func (c *scmContainer) Download(dir string, version gpsmodel.Version) error {
	return errors.New("Download is only valid for registry containers")
}
