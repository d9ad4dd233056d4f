package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTask() *TaskRecord {
	return &TaskRecord{
		ID:        NewTaskID(),
		Library:   "screencasts",
		Filename:  "standup.mp4",
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}
}

func TestValidateTaskRecord(t *testing.T) {
	assert.NoError(t, ValidateTaskRecord(validTask()))
}

func TestValidateTaskRecordErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TaskRecord)
		wantErr error
	}{
		{"empty id", func(task *TaskRecord) { task.ID = "" }, ErrInvalidTask},
		{"empty library", func(task *TaskRecord) { task.Library = "" }, ErrEmptyLibrary},
		{"bad status", func(task *TaskRecord) { task.Status = 99 }, ErrInvalidStatus},
		{"negative progress", func(task *TaskRecord) { task.Progress = -1 }, ErrInvalidProgress},
		{"excess progress", func(task *TaskRecord) { task.Progress = 101 }, ErrInvalidProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(task)
			err := ValidateTaskRecord(task)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTaskRecordNil(t *testing.T) {
	assert.ErrorIs(t, ValidateTaskRecord(nil), ErrInvalidTask)
}

func TestValidateAnalysisEntry(t *testing.T) {
	entry := &AnalysisEntry{
		Fingerprint: "abcd",
		ExternalID:  "ext-1",
	}
	assert.NoError(t, ValidateAnalysisEntry(entry))

	entry.ExternalID = ""
	assert.ErrorIs(t, ValidateAnalysisEntry(entry), ErrEmptyExternalID)

	entry.Fingerprint = ""
	assert.ErrorIs(t, ValidateAnalysisEntry(entry), ErrEmptyFingerprint)

	assert.ErrorIs(t, ValidateAnalysisEntry(nil), ErrInvalidAnalysisEntry)
}

func TestValidateChunk(t *testing.T) {
	chunk := &Chunk{
		Key:         ChunkKey("abcd", 0),
		Library:     "screencasts",
		Fingerprint: "abcd",
		StartMS:     0,
		EndMS:       1500,
		Text:        "hello",
	}
	assert.NoError(t, ValidateChunk(chunk))

	chunk.EndMS = -1
	assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidTimeRange)

	chunk.EndMS = 1500
	chunk.Library = ""
	assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyLibrary)

	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
}
