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

import "errors"

// Domain validation errors
var (
	// ErrInvalidTask indicates a TaskRecord failed validation.
	ErrInvalidTask = errors.New("invalid task record")

	// ErrInvalidAnalysisEntry indicates an AnalysisEntry failed validation.
	ErrInvalidAnalysisEntry = errors.New("invalid analysis entry")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyLibrary indicates the Library field is empty.
	ErrEmptyLibrary = errors.New("library cannot be empty")

	// ErrEmptyFingerprint indicates a fingerprint is missing where required.
	ErrEmptyFingerprint = errors.New("fingerprint cannot be empty")

	// ErrEmptyExternalID indicates the remote analysis identifier is missing.
	ErrEmptyExternalID = errors.New("external analysis id cannot be empty")

	// ErrInvalidStatus indicates an invalid TaskStatus value.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidProgress indicates a progress value outside 0-100.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrInvalidTimeRange indicates a chunk whose end precedes its start.
	ErrInvalidTimeRange = errors.New("chunk end cannot precede its start")

	// ErrContentUnreadable indicates that file content could not be fully read.
	ErrContentUnreadable = errors.New("content unreadable")
)
