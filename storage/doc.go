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


// Package storage provides the storage abstraction layer for mediamind.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion logic:
//
//   - TaskRepository: durable task lifecycle records with invariant guards
//   - AnalysisCache: the content-addressed duplicate-detection cache
//   - IndexRepository: idempotent storage for embedded chunks
//   - SweepMarker: retention sweep bookkeeping
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather
// than concrete types, so consumers can swap backends (BadgerDB, in-memory,
// test doubles) without modification:
//
//	tasks, err := badger.NewTaskRepository(backend)  // storage.TaskRepository
//
// # Invariants
//
// The task repository, not its callers, enforces the lifecycle rules: task
// IDs are unique, terminal statuses are final, and progress is monotonic
// while a task is non-terminal. The analysis cache enforces exactly-once
// writes per fingerprint; a duplicate Store returns ErrDuplicateKey, which
// callers treat as benign. The chunk index is keyed deterministically so a
// retried write replaces rather than duplicates.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple in-flight pipeline executions. Mutations are atomic
// per record (per task ID, per fingerprint, per chunk key); no global lock
// is required.
//
// # Context Support
//
// All repository methods accept context.Context. Pass context.Background()
// for operations without specific timeout requirements.
package storage
