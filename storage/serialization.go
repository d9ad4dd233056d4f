// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/poiesic/mediamind/core"
)

// MarshalTaskRecord serializes a TaskRecord to bytes.
func MarshalTaskRecord(task *core.TaskRecord) []byte {
	buf := make([]byte, core.TaskRecordMUS.Size(*task))
	core.TaskRecordMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalTaskRecord deserializes a TaskRecord from bytes.
func UnmarshalTaskRecord(data []byte) (*core.TaskRecord, error) {
	task, _, err := core.TaskRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &task, nil
}

// MarshalAnalysisEntry serializes an AnalysisEntry to bytes.
func MarshalAnalysisEntry(entry *core.AnalysisEntry) []byte {
	buf := make([]byte, core.AnalysisEntryMUS.Size(*entry))
	core.AnalysisEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalAnalysisEntry deserializes an AnalysisEntry from bytes.
func UnmarshalAnalysisEntry(data []byte) (*core.AnalysisEntry, error) {
	entry, _, err := core.AnalysisEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}
