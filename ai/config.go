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

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// AnalyzerHost is the base URL for the media analysis service API.
	// Example: "http://localhost:9400"
	AnalyzerHost string

	// AnalyzerAPIKey authenticates requests to the analysis service.
	// Empty means unauthenticated (local deployments).
	AnalyzerAPIKey string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// TaggerHost is the base URL for the tag extraction service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	TaggerHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// TaggerModel is the model identifier to use for tag extraction.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	TaggerModel string

	// MaxTags is the maximum number of tags to extract per text.
	// Default: 8
	MaxTags int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAnalyzerHost sets the media analysis service host URL.
func WithAnalyzerHost(host string) ConfigOption {
	return func(c *Config) {
		c.AnalyzerHost = host
	}
}

// WithAnalyzerAPIKey sets the analysis service API key.
func WithAnalyzerAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.AnalyzerAPIKey = key
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithTaggerHost sets the tagger service host URL.
func WithTaggerHost(host string) ConfigOption {
	return func(c *Config) {
		c.TaggerHost = host
	}
}

// WithLanguageHost sets both embedding and tagger hosts to the same URL.
func WithLanguageHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.TaggerHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithTaggerModel sets the tagger model identifier.
func WithTaggerModel(model string) ConfigOption {
	return func(c *Config) {
		c.TaggerModel = model
	}
}

// WithMaxTags sets the maximum number of tags extracted per text.
func WithMaxTags(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTags = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local services.
// By default, embedding and tagger use the same OpenAI-compatible host.
func DefaultConfig() *Config {
	languageHost := "http://localhost:11434/v1"
	return &Config{
		AnalyzerHost:   "http://localhost:9400",
		EmbeddingHost:  languageHost,
		TaggerHost:     languageHost,
		EmbeddingModel: "embeddinggemma",
		TaggerModel:    "qwen2.5:3b",
		MaxTags:        8,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithAnalyzerHost("https://analysis.example.com"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It strips trailing slashes from the analyzer host and adds the /v1 suffix
// to the language hosts if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.AnalyzerHost = strings.TrimSuffix(c.AnalyzerHost, "/")

	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.TaggerHost != "" && !strings.HasSuffix(c.TaggerHost, "/v1") {
		c.TaggerHost = strings.TrimSuffix(c.TaggerHost, "/")
		c.TaggerHost = c.TaggerHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.AnalyzerHost == "" {
		return errors.New("ai config: AnalyzerHost is required")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.TaggerHost == "" {
		return errors.New("ai config: TaggerHost is required")
	}
	if c.TaggerModel == "" {
		return errors.New("ai config: TaggerModel is required")
	}
	if c.MaxTags < 1 || c.MaxTags > 32 {
		return errors.New("ai config: MaxTags must be between 1 and 32")
	}
	return nil
}
