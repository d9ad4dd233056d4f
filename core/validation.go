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


package core

import "fmt"

// ValidateTaskRecord validates a TaskRecord according to domain rules.
//
// Validation rules:
//   - ID and Library must not be empty
//   - Status must be a known value
//   - Progress must be within 0-100
//
// NOT validated (populated as the pipeline advances):
//   - Fingerprint, ExternalID (set once the respective step has run)
//   - StartedAt, CompletedAt (zero until reached)
func ValidateTaskRecord(task *TaskRecord) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}

	if task.ID == "" {
		return fmt.Errorf("%w: task id is empty", ErrInvalidTask)
	}

	if task.Library == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrEmptyLibrary)
	}

	if err := ValidateTaskStatus(task.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	if task.Progress < 0 || task.Progress > 100 {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrInvalidProgress)
	}

	return nil
}

// ValidateAnalysisEntry validates an AnalysisEntry according to domain rules.
func ValidateAnalysisEntry(entry *AnalysisEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidAnalysisEntry)
	}

	if entry.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysisEntry, ErrEmptyFingerprint)
	}

	if entry.ExternalID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysisEntry, ErrEmptyExternalID)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// NOT validated:
//   - Vector (can be empty until the embed step runs)
//   - Tags, Citation (optional enrichment)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Key == "" {
		return fmt.Errorf("%w: chunk key is empty", ErrInvalidChunk)
	}

	if chunk.Library == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyLibrary)
	}

	if chunk.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyFingerprint)
	}

	if chunk.EndMS < chunk.StartMS {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidTimeRange)
	}

	return nil
}

// ValidateTaskStatus validates that a TaskStatus has a known value.
func ValidateTaskStatus(status TaskStatus) error {
	if status < StatusPending || status > StatusCancelled {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}
