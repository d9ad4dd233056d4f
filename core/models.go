package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskID is the opaque identifier of one ingestion submission.
type TaskID string

// NewTaskID generates a fresh task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

// Fingerprint is a hex-encoded content hash computed from file bytes.
// Identical bytes always produce identical fingerprints, regardless of
// filename or other metadata.
type Fingerprint string

// TaskStatus describes where a task is in its lifecycle.
type TaskStatus int

const (
	// StatusPending means the task has been admitted but not yet picked up
	// by a worker.
	StatusPending TaskStatus = iota + 1
	// StatusProcessing means the pipeline is executing the task.
	StatusProcessing
	// StatusCompleted means the pipeline finished successfully.
	StatusCompleted
	// StatusFailed means the pipeline stopped on a non-retryable error.
	StatusFailed
	// StatusCancelled means the caller requested cancellation and the
	// pipeline honored it at a step boundary.
	StatusCancelled
)

// String returns the lowercase name of the status.
func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further status transition may occur.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseTaskStatus converts a status name back into a TaskStatus.
// Returns 0 and false for unrecognized names.
func ParseTaskStatus(name string) (TaskStatus, bool) {
	for _, s := range []TaskStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled} {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// TaskRecord is the durable representation of one submission's lifecycle.
// It is created at submission, mutated only by the pipeline executing it,
// and removed by the retention sweep once terminal and older than the
// retention window.
type TaskRecord struct {
	ID              TaskID
	Library         string // Target library for the indexed content
	Filename        string // Display name of the submitted file
	Fingerprint     Fingerprint
	ExternalID      string // Remote analysis identifier, once known
	Status          TaskStatus
	Progress        int // 0-100, non-decreasing while non-terminal
	CurrentStep     string
	ErrorMessage    string // Set only when Status == StatusFailed
	CancelRequested bool
	CreatedAt       time.Time
	StartedAt       time.Time // Zero until a worker picks the task up
	CompletedAt     time.Time // Zero until the task reaches a terminal state
}

// TerminalAt returns the timestamp at which the task entered its terminal
// state, or the zero time if it is still in flight.
func (t *TaskRecord) TerminalAt() time.Time {
	if !t.Status.Terminal() {
		return time.Time{}
	}
	return t.CompletedAt
}

// AnalysisEntry records a completed remote analysis for one content
// fingerprint. Entries are written exactly once, at the successful end of a
// slow-path run, and are never overwritten or evicted: they represent sunk,
// expensive work whose reuse is pure savings.
type AnalysisEntry struct {
	Fingerprint  Fingerprint
	ExternalID   string
	Metadata     map[string]string // Attributes of the original analysis (duration, source, ...)
	FirstSeenAt  time.Time
	LastReusedAt time.Time
}

// Chunk is a bounded-size, time-addressable segment of analyzed content,
// ready for embedding and indexing. Key is deterministic for a given
// fingerprint and position, which makes index writes idempotent.
type Chunk struct {
	Key         string // "<fingerprint>:<seq>", stable across retries
	Library     string
	Fingerprint Fingerprint
	Seq         int
	StartMS     int64
	EndMS       int64
	Text        string
	Tags        []string
	Vector      []float32
	Citation    map[string]string // Source attribution carried into the index
	UpdatedAt   time.Time
}

// ChunkKey builds the deterministic index key for a chunk position.
// Sequence numbers are zero-padded so keys sort in segment order.
func ChunkKey(fp Fingerprint, seq int) string {
	return fmt.Sprintf("%s:%06d", fp, seq)
}
