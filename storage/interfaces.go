package storage

import (
	"context"
	"time"

	"github.com/poiesic/mediamind/core"
)

// TaskFilter restricts a ListTasks query. Zero values mean "no restriction".
type TaskFilter struct {
	Library       string
	Statuses      []core.TaskStatus
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Limit         int
}

// Matches reports whether a task satisfies the non-time parts of the filter.
func (f TaskFilter) Matches(task *core.TaskRecord) bool {
	if f.Library != "" && task.Library != f.Library {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if task.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TaskRepository provides durable storage for task lifecycle records.
// Implementations must be thread-safe; each individual task has a single
// writer (the pipeline executing it), but distinct tasks are written
// concurrently.
type TaskRepository interface {
	// CreateTask persists a new task record. The record must already carry
	// a unique ID. Returns ErrDuplicateKey if the ID exists.
	CreateTask(ctx context.Context, task *core.TaskRecord) (*core.TaskRecord, error)

	// GetTask retrieves a task by ID. Returns ErrNotFound if the task does
	// not exist (including after a retention sweep).
	GetTask(ctx context.Context, id core.TaskID) (*core.TaskRecord, error)

	// UpdateTask applies mutate to the stored record inside one
	// transaction and persists the result. The repository enforces the
	// lifecycle invariants: a terminal task rejects any further status
	// change (ErrTerminalState), and progress may not decrease while
	// non-terminal (ErrProgressRegression). Setting CancelRequested on a
	// non-terminal task is always permitted.
	UpdateTask(ctx context.Context, id core.TaskID, mutate func(*core.TaskRecord) error) (*core.TaskRecord, error)

	// ListTasks returns tasks matching the filter, most recent first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*core.TaskRecord, error)

	// SweepTasks removes terminal tasks whose terminal timestamp is older
	// than the retention window. Non-terminal tasks are never swept,
	// regardless of age. Returns the number of removed records.
	SweepTasks(ctx context.Context, olderThan time.Duration) (int, error)

	// ActiveTaskForContent returns the non-terminal task targeting the
	// given (library, fingerprint), or ErrNotFound when none is in flight.
	// At most one such task exists at any time.
	ActiveTaskForContent(ctx context.Context, library string, fp core.Fingerprint) (*core.TaskRecord, error)

	// Close releases resources held by the repository.
	Close() error
}

// AnalysisCache is the duplicate-detection cache: a durable mapping from
// content fingerprint to a previously obtained remote analysis. Entries are
// written exactly once and never evicted.
type AnalysisCache interface {
	// Lookup returns the entry for a fingerprint, or ErrNotFound. Pure
	// local read, never blocks on network.
	Lookup(ctx context.Context, fp core.Fingerprint) (*core.AnalysisEntry, error)

	// Store persists a new entry. A second Store for the same fingerprint
	// returns ErrDuplicateKey and leaves the original untouched; callers
	// must treat that as benign.
	Store(ctx context.Context, entry *core.AnalysisEntry) error

	// Touch updates LastReusedAt for a fast-path hit.
	Touch(ctx context.Context, fp core.Fingerprint) error

	// ListEntries returns entries first seen at or after since, oldest
	// first, up to limit.
	ListEntries(ctx context.Context, since time.Time, limit int) ([]*core.AnalysisEntry, error)

	// Close releases resources held by the cache.
	Close() error
}

// IndexRepository stores embedded chunks, keyed deterministically so that a
// retried store step overwrites rather than duplicates.
type IndexRepository interface {
	// UpsertChunks writes chunks by their deterministic keys. Replaying
	// the same chunks leaves exactly one record per key.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves one chunk by library and key. Returns ErrNotFound
	// if absent.
	GetChunk(ctx context.Context, library, key string) (*core.Chunk, error)

	// ChunksForContent returns all chunks indexed for a fingerprint within
	// a library, in segment order.
	ChunksForContent(ctx context.Context, library string, fp core.Fingerprint) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks indexed for a fingerprint
	// within a library.
	CountChunks(ctx context.Context, library string, fp core.Fingerprint) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// SweepMarker persists bookkeeping about the retention sweep so operators
// can tell when it last ran and what it removed.
type SweepMarker interface {
	// SaveSweepMark records the outcome of a sweep run.
	SaveSweepMark(ctx context.Context, mark *SweepMark) error

	// LoadSweepMark returns the most recent sweep outcome, or nil when no
	// sweep has run yet.
	LoadSweepMark(ctx context.Context) (*SweepMark, error)
}

// SweepMark is one retention sweep outcome.
type SweepMark struct {
	RanAt   time.Time
	Removed int
}
