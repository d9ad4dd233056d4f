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

// Package ingest orchestrates the asynchronous media ingestion pipeline.
//
// A submission is admitted instantly and processed on a bounded worker
// pool: the content is fingerprinted, checked against the duplicate
// detection cache, and then either uploaded for remote analysis (slow
// path) or completed from the prior analysis (fast path). The resulting
// insights are chunked, embedded, and written to the index. Task records
// track progress through every step and are the only thing callers ever
// observe; collaborator errors surface as a terminal Failed status with a
// readable message, never as raw errors.
//
// # Components
//
//   - Manager: public orchestrator (Submit, GetStatus, Cancel, List, Sweep)
//   - Pipeline: per-task step executor with cooperative cancellation
//   - Plan: explicit fast/slow step sequences, selected once at cache check
//   - RetryPolicy: exponential backoff with jitter for external calls
//   - Chunker: deterministic token-bounded chunking of analysis insights
//
// # Concurrency
//
// One goroutine runs each in-flight task; the ants pool bounds how many
// run at once. Concurrent submissions of byte-identical content converge
// after fingerprinting: one task leads, the rest wait and adopt its
// outcome, so the expensive remote analysis happens exactly once per
// fingerprint. The durable active-task claim in storage enforces the same
// rule across process restarts.
//
// # Retention
//
// Terminal task records older than seven days are swept nightly. Cache
// entries are never swept: they are content-addressed results of sunk,
// expensive work, and reusing them is pure savings with no staleness risk.
package ingest
