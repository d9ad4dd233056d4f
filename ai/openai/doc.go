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

// Package openai provides AI language services using OpenAI-compatible APIs.
//
// This package implements the ai.Embedder and ai.Tagger interfaces using the
// langchaingo library to communicate with OpenAI or OpenAI-compatible
// services (such as Ollama, LocalAI, or vLLM). Its Provider pairs those
// language services with a media analyzer supplied by the caller, typically
// the ai/videoai client.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithLanguageHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	    ai.WithTaggerModel("qwen2.5:3b"),
//	)
//
//	analyzer, err := videoai.NewAnalyzer(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := openai.NewProvider(config, analyzer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	// Use the services
//	embeddings, err := provider.Embedder().EmbedText(ctx, "sample text")
//	tags, err := provider.Tagger().ExtractTags(ctx, transcriptText)
package openai
