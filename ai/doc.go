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

// Package ai provides abstractions for the AI services used in MediaMind.
//
// This package defines interfaces for the remote media analysis service,
// text embeddings, and tag extraction. It follows the dependency inversion
// principle, allowing the ingestion pipeline to depend on abstractions
// rather than concrete implementations.
//
// # Design Principles
//
// The package is designed around four key interfaces:
//
//   - Analyzer: Uploads media to a remote analysis service and retrieves insights
//   - Embedder: Generates vector embeddings from text
//   - Tagger: Extracts semantic topic tags from transcript text
//   - Provider: Aggregates AI services for convenient initialization
//
// # Error Classification
//
// Analyzer implementations classify failures so callers can decide whether
// to retry. A failure wrapped with Transient (timeouts, rate limits, 5xx
// responses) is worth retrying; one wrapped with Terminal (rejected content,
// authentication problems) is not. Use IsTransient and IsTerminal to test a
// returned error. Errors carrying neither classification should be treated
// as transient by callers, since most unclassified failures in practice are
// network conditions.
//
// # Implementation Packages
//
// The ai package includes three implementation sub-packages:
//
//   - ai/videoai: Analysis client for the remote media analysis REST API
//   - ai/openai: Embedder and tagger backed by OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (videoai.NewAnalyzer, openai.NewEmbedder, etc.)
// return INTERFACE types to enforce abstraction and prevent accidental
// coupling to concrete implementations.
//
// Test utility constructors (mock.NewMockAnalyzer, mock.NewMockEmbedder)
// return CONCRETE types to enable test assertions and behavior injection
// via the mock's public methods (UploadCount, WithStatusFunc, Reset, etc.).
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAnalyzerHost("https://analysis.example.com"))
//	analyzer, err := videoai.NewAnalyzer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	externalID, err := analyzer.Upload(ctx, file, "lecture.mp4")
//	state, err := analyzer.Status(ctx, externalID)
//	if state.Settled() {
//	    insights, err := analyzer.Insights(ctx, externalID)
//	    ...
//	}
package ai
