package storage

import (
	"testing"
	"time"

	"github.com/poiesic/mediamind/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	task := &core.TaskRecord{
		ID:              core.NewTaskID(),
		Library:         "screencasts",
		Filename:        "standup.mp4",
		Fingerprint:     "abcd1234",
		ExternalID:      "ext-42",
		Status:          core.StatusProcessing,
		Progress:        60,
		CurrentStep:     "await-analysis",
		CancelRequested: true,
		CreatedAt:       now,
		StartedAt:       now.Add(time.Second),
	}

	decoded, err := UnmarshalTaskRecord(MarshalTaskRecord(task))
	require.NoError(t, err)
	assert.Equal(t, task, decoded)

	// Unset terminal timestamp survives as the zero time
	assert.True(t, decoded.CompletedAt.IsZero())
}

func TestAnalysisEntryRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.AnalysisEntry{
		Fingerprint: "feedbeef",
		ExternalID:  "ext-7",
		Metadata: map[string]string{
			"duration_ms": "184000",
			"source":      "upload",
		},
		FirstSeenAt:  now,
		LastReusedAt: now.Add(time.Hour),
	}

	decoded, err := UnmarshalAnalysisEntry(MarshalAnalysisEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestChunkRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunk := &core.Chunk{
		Key:         core.ChunkKey("feedbeef", 3),
		Library:     "screencasts",
		Fingerprint: "feedbeef",
		Seq:         3,
		StartMS:     30000,
		EndMS:       45000,
		Text:        "and that's why the deploy failed",
		Tags:        []string{"deploy", "incident"},
		Vector:      []float32{0.25, -0.5, 0.125},
		Citation:    map[string]string{"filename": "standup.mp4"},
		UpdatedAt:   now,
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestUnmarshalTruncatedData(t *testing.T) {
	task := &core.TaskRecord{ID: core.NewTaskID(), Library: "l", Status: core.StatusPending}
	data := MarshalTaskRecord(task)

	_, err := UnmarshalTaskRecord(data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestTaskFilterMatches(t *testing.T) {
	task := &core.TaskRecord{Library: "screencasts", Status: core.StatusCompleted}

	assert.True(t, TaskFilter{}.Matches(task))
	assert.True(t, TaskFilter{Library: "screencasts"}.Matches(task))
	assert.False(t, TaskFilter{Library: "podcasts"}.Matches(task))
	assert.True(t, TaskFilter{Statuses: []core.TaskStatus{core.StatusCompleted, core.StatusFailed}}.Matches(task))
	assert.False(t, TaskFilter{Statuses: []core.TaskStatus{core.StatusPending}}.Matches(task))
}
