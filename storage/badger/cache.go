package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
)

// AnalysisCache implements storage.AnalysisCache for BadgerDB.
type AnalysisCache struct {
	backend *Backend
}

var _ storage.AnalysisCache = (*AnalysisCache)(nil)

// NewAnalysisCache creates a new AnalysisCache.
func NewAnalysisCache(backend *Backend) (*AnalysisCache, error) {
	return &AnalysisCache{
		backend: backend,
	}, nil
}

// Close releases resources. AnalysisCache has no resources to release.
func (c *AnalysisCache) Close() error {
	return nil
}

// Lookup returns the entry for a fingerprint, or storage.ErrNotFound.
func (c *AnalysisCache) Lookup(ctx context.Context, fp core.Fingerprint) (*core.AnalysisEntry, error) {
	var result *core.AnalysisEntry
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readAnalysisEntry(tx, makeAnalysisKey(fp))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Store persists a new entry exactly once. A second Store for the same
// fingerprint returns storage.ErrDuplicateKey and leaves the original
// untouched; concurrent writers racing on commit surface the same error.
func (c *AnalysisCache) Store(ctx context.Context, entry *core.AnalysisEntry) error {
	if entry.FirstSeenAt.IsZero() {
		entry.FirstSeenAt = time.Now().UTC()
	}
	if err := core.ValidateAnalysisEntry(entry); err != nil {
		return err
	}

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeAnalysisKey(entry.Fingerprint)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Set(key, storage.MarshalAnalysisEntry(entry)); err != nil {
			return err
		}

		seenKey := makeAnalysisSeenKey(entry.FirstSeenAt, entry.Fingerprint)
		if err := tx.Set(seenKey, []byte(entry.Fingerprint)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	// Two slow-path runs committing the same fingerprint conflict at the
	// storage level; the loser sees the entry it failed to write.
	if err == badger.ErrConflict {
		return storage.ErrDuplicateKey
	}
	return err
}

// Touch updates LastReusedAt for a fast-path hit.
func (c *AnalysisCache) Touch(ctx context.Context, fp core.Fingerprint) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeAnalysisKey(fp)
		entry, err := readAnalysisEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}

		entry.LastReusedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalAnalysisEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListEntries returns entries first seen at or after since, oldest first.
func (c *AnalysisCache) ListEntries(ctx context.Context, since time.Time, limit int) ([]*core.AnalysisEntry, error) {
	if since.IsZero() {
		since = time.UnixMicro(0)
	}

	var results []*core.AnalysisEntry
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makeAnalysisSeenKey(since, "")
		prefix := []byte(analysisSeenPrefix + ":")
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var fp core.Fingerprint
			if err := iter.Item().Value(func(val []byte) error {
				fp = core.Fingerprint(val)
				return nil
			}); err != nil {
				return err
			}

			entry, err := readAnalysisEntry(tx, makeAnalysisKey(fp))
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// readAnalysisEntry reads a cache entry from the transaction.
func readAnalysisEntry(tx *badger.Txn, key []byte) (*core.AnalysisEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.AnalysisEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalAnalysisEntry(val)
		return err
	})
	return entry, err
}
