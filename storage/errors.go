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

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	// For tasks this is distinct from failure: a swept task is an expired
	// record, not an error state.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a write that would violate a unique key.
	// On the analysis cache this is benign: another submission won the race.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTerminalState indicates an attempt to mutate a task that has
	// already reached a terminal status.
	ErrTerminalState = errors.New("task is in a terminal state")

	// ErrProgressRegression indicates an update that would decrease a
	// non-terminal task's progress.
	ErrProgressRegression = errors.New("progress cannot decrease")

	// ErrTransactionFailed indicates that a transaction failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
