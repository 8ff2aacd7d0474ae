package container

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/gpsmodel"
	"github.com/solvepkg/wspkg/internal/model"
)

// VersionCache is a BoltDB-backed cache of tag/revision lookups, one bucket
// per package identity, so repeated GetTag/GetRevision calls under the same
// epoch don't require hitting the upstream source control host. Mirrors
// gps/source_cache_bolt.go's role in golang-dep: a side cache the provider
// consults before falling back to the real Container operations.
type VersionCache struct {
	db    *bolt.DB
	epoch int64 // entries written under a different epoch are ignored
}

const (
	tagsBucket      = "tags"
	revisionsBucket = "revisions"
)

type cachedTag struct {
	Name     string `json:"name"`
	Revision string `json:"revision"`
	Epoch    int64  `json:"epoch"`
}

type cachedRevision struct {
	Revision string `json:"revision"`
	Epoch    int64  `json:"epoch"`
}

// OpenVersionCache opens (creating if necessary) a BoltDB file at path. The
// caller chooses the epoch; entries written under any other epoch are
// ignored on read, so opening with a new epoch invalidates previously cached
// entries without deleting them outright.
func OpenVersionCache(path string, epoch int64) (*VersionCache, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open version cache")
	}
	return &VersionCache{db: db, epoch: epoch}, nil
}

func (c *VersionCache) Close() error {
	return c.db.Close()
}

func bucketKey(kind string, id model.PackageIdentity) []byte {
	return []byte(kind + "\x00" + string(id))
}

func (c *VersionCache) GetTag(id model.PackageIdentity, version gpsmodel.Version) (*Tag, bool) {
	var entry *cachedTag
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKey(tagsBucket, id))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(version.String()))
		if raw == nil {
			return nil
		}
		var e cachedTag
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		entry = &e
		return nil
	})
	if err != nil || entry == nil || entry.Epoch != c.epoch {
		return nil, false
	}
	return &Tag{Name: entry.Name, Revision: gpsmodel.Revision(entry.Revision)}, true
}

func (c *VersionCache) PutTag(id model.PackageIdentity, version gpsmodel.Version, tag *Tag) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketKey(tagsBucket, id))
		if err != nil {
			return err
		}
		raw, err := json.Marshal(cachedTag{Name: tag.Name, Revision: string(tag.Revision), Epoch: c.epoch})
		if err != nil {
			return err
		}
		return b.Put([]byte(version.String()), raw)
	})
}

func (c *VersionCache) GetRevision(id model.PackageIdentity, identifier string) (gpsmodel.Revision, bool) {
	var entry *cachedRevision
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKey(revisionsBucket, id))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(identifier))
		if raw == nil {
			return nil
		}
		var e cachedRevision
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		entry = &e
		return nil
	})
	if err != nil || entry == nil || entry.Epoch != c.epoch {
		return "", false
	}
	return gpsmodel.Revision(entry.Revision), true
}

func (c *VersionCache) PutRevision(id model.PackageIdentity, identifier string, rev gpsmodel.Revision) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketKey(revisionsBucket, id))
		if err != nil {
			return err
		}
		raw, err := json.Marshal(cachedRevision{Revision: string(rev), Epoch: c.epoch})
		if err != nil {
			return err
		}
		return b.Put([]byte(identifier), raw)
	})
}
