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

package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/mediamind/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Tagger implements ai.Tagger using OpenAI-compatible chat APIs.
type Tagger struct {
	client  llms.Model
	maxTags int
	logger  *slog.Logger
}

// tag is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type tag struct {
	Tag       string `json:"tag"`
	Relevance int    `json:"relevance"`
}

// tagAnalysis is the wrapper structure for the LLM's JSON response.
type tagAnalysis struct {
	Tags []tag `json:"tags"`
}

// newTagger is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTagger(config *ai.Config) (*Tagger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/tagging
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.TaggerHost),
		openai.WithToken("none"),
		openai.WithModel(config.TaggerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Tagger{
		client:  client,
		maxTags: config.MaxTags,
		logger:  slog.Default().With("component", "openai-tagger"),
	}, nil
}

// NewTagger creates a new tagger using the provided configuration.
//
// Returns ai.Tagger interface to enforce abstraction.
func NewTagger(config *ai.Config) (ai.Tagger, error) {
	return newTagger(config)
}

// ExtractTags derives topic tags from text using an LLM.
// Tags come back ordered by relevance, at most MaxTags of them.
func (t *Tagger) ExtractTags(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildTaggingPrompt(t.maxTags)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result tagAnalysis
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			t.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, ai.Transient(err)
		}

		if len(response.Choices) < 1 {
			t.logger.Debug("no choices returned from model")
			return []string{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			t.logger.Warn("error parsing tagger response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		t.logger.Error("failed to parse tagger response after retries", "err", lastErr)
		return nil, ai.Transient(lastErr)
	}

	// Sort by relevance (descending), normalize, and deduplicate
	slices.SortFunc(result.Tags, func(a, b tag) int {
		return b.Relevance - a.Relevance
	})

	seen := make(map[string]bool, len(result.Tags))
	tags := make([]string, 0, len(result.Tags))
	for _, item := range result.Tags {
		name := strings.ToLower(strings.TrimSpace(item.Tag))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
		if len(tags) >= t.maxTags {
			break
		}
	}

	t.logger.Debug("extracted tags", "total", len(result.Tags), "kept", len(tags))
	return tags, nil
}
