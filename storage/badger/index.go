package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) (*IndexRepository, error) {
	return &IndexRepository{
		backend: backend,
	}, nil
}

// Close releases resources. IndexRepository has no resources to release.
func (r *IndexRepository) Close() error {
	return nil
}

// UpsertChunks writes chunks by their deterministic keys. Replaying the
// same chunks after a partial failure leaves exactly one record per key.
func (r *IndexRepository) UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			chunk.UpdatedAt = time.Now().UTC()
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			key := makeChunkKey(chunk.Library, chunk.Key)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves one chunk by library and key.
func (r *IndexRepository) GetChunk(ctx context.Context, library, key string) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(library, key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalChunk(val)
			return err
		})
	}, false)
	return result, err
}

// ChunksForContent returns all chunks indexed for a fingerprint within a
// library. Chunk keys embed a zero-padded sequence number, so the scan
// yields segment order.
func (r *IndexRepository) ChunksForContent(ctx context.Context, library string, fp core.Fingerprint) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeChunkContentPrefix(library, fp)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if !bytes.HasPrefix(iter.Item().Key(), prefix) {
				break
			}
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// CountChunks returns the number of chunks indexed for a fingerprint within
// a library.
func (r *IndexRepository) CountChunks(ctx context.Context, library string, fp core.Fingerprint) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeChunkContentPrefix(library, fp)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if !bytes.HasPrefix(iter.Item().Key(), prefix) {
				break
			}
			count++
		}
		return nil
	}, false)
	return count, err
}
