package badger

import (
	"context"
	"testing"

	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIndex(t *testing.T) storage.IndexRepository {
	tasks, cache, index, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		cache.Close()
		tasks.Close()
		backend.Close()
	})
	return index
}

func testChunk(fp core.Fingerprint, seq int) *core.Chunk {
	return &core.Chunk{
		Key:         core.ChunkKey(fp, seq),
		Library:     "screencasts",
		Fingerprint: fp,
		Seq:         seq,
		StartMS:     int64(seq) * 15000,
		EndMS:       int64(seq+1) * 15000,
		Text:        "segment text",
		Vector:      []float32{0.1, 0.2, 0.3},
	}
}

func TestUpsertAndGetChunk(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	chunk := testChunk("fp-1", 0)
	require.NoError(t, index.UpsertChunks(ctx, chunk))

	got, err := index.GetChunk(ctx, "screencasts", chunk.Key)
	require.NoError(t, err)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.Vector, got.Vector)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetChunkNotFound(t *testing.T) {
	index := setupIndex(t)

	_, err := index.GetChunk(context.Background(), "screencasts", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertChunksIdempotent(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	chunks := []*core.Chunk{testChunk("fp-1", 0), testChunk("fp-1", 1), testChunk("fp-1", 2)}
	require.NoError(t, index.UpsertChunks(ctx, chunks...))

	// Replaying the whole batch, as a retried store step would, must not
	// create duplicate records
	replay := []*core.Chunk{testChunk("fp-1", 0), testChunk("fp-1", 1), testChunk("fp-1", 2)}
	require.NoError(t, index.UpsertChunks(ctx, replay...))

	count, err := index.CountChunks(ctx, "screencasts", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestChunksForContentOrder(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	// Insert out of order; zero-padded keys restore segment order
	require.NoError(t, index.UpsertChunks(ctx, testChunk("fp-1", 2), testChunk("fp-1", 0), testChunk("fp-1", 1)))

	chunks, err := index.ChunksForContent(ctx, "screencasts", "fp-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[1].Seq)
	assert.Equal(t, 2, chunks[2].Seq)
}

func TestChunksScopedByLibraryAndContent(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, index.UpsertChunks(ctx, testChunk("fp-1", 0)))

	other := testChunk("fp-2", 0)
	require.NoError(t, index.UpsertChunks(ctx, other))

	podcast := testChunk("fp-1", 0)
	podcast.Library = "podcasts"
	require.NoError(t, index.UpsertChunks(ctx, podcast))

	count, err := index.CountChunks(ctx, "screencasts", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertChunkInvalid(t *testing.T) {
	index := setupIndex(t)

	bad := testChunk("fp-1", 0)
	bad.Library = ""
	err := index.UpsertChunks(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrEmptyLibrary)
}
