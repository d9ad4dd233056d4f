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

package mediamind

import (
	"log/slog"

	"github.com/poiesic/mediamind/ai"
	"github.com/poiesic/mediamind/ai/openai"
	"github.com/poiesic/mediamind/ai/videoai"
	"github.com/poiesic/mediamind/ingest"
	"github.com/poiesic/mediamind/storage"
	"github.com/poiesic/mediamind/storage/badger"
)

// Service wires the storage backend, AI provider, and ingestion machinery
// into one unit with a single lifecycle.
type Service struct {
	backend  *badger.Backend
	tasks    storage.TaskRepository
	cache    storage.AnalysisCache
	index    storage.IndexRepository
	marker   storage.SweepMarker
	provider ai.Provider
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig overrides the AI service configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built AI provider, bypassing the default
// videoai/openai wiring. Used by tests with mock providers.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps all state in memory rather than on disk.
func WithInMemoryStorage() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// NewService opens the storage backend at filePath and connects the AI
// services. Close must be called to release everything.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	tasks, err := badger.NewTaskRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	cache, err := badger.NewAnalysisCache(backend)
	if err != nil {
		tasks.Close()
		backend.Close()
		return nil, err
	}

	index, err := badger.NewIndexRepository(backend)
	if err != nil {
		cache.Close()
		tasks.Close()
		backend.Close()
		return nil, err
	}

	marker := badger.NewSweepMarker(backend)

	provider := options.provider
	if provider == nil {
		analyzer, err := videoai.NewAnalyzer(options.aiConfig)
		if err != nil {
			index.Close()
			cache.Close()
			tasks.Close()
			backend.Close()
			return nil, err
		}
		provider, err = openai.NewProvider(options.aiConfig, analyzer)
		if err != nil {
			index.Close()
			cache.Close()
			tasks.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Service{
		backend:  backend,
		tasks:    tasks,
		cache:    cache,
		index:    index,
		marker:   marker,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

// Close releases the AI provider, repositories, and storage backend.
func (s *Service) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.index.Close(); err != nil {
		s.logger.Error("error closing index repository", "err", err)
		return err
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("error closing analysis cache", "err", err)
		return err
	}
	if err := s.tasks.Close(); err != nil {
		s.logger.Error("error closing task repository", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// TaskRepository returns the task lifecycle store.
func (s *Service) TaskRepository() storage.TaskRepository {
	return s.tasks
}

// AnalysisCache returns the duplicate-detection cache.
func (s *Service) AnalysisCache() storage.AnalysisCache {
	return s.cache
}

// IndexRepository returns the chunk index store.
func (s *Service) IndexRepository() storage.IndexRepository {
	return s.index
}

// Provider returns the AI service provider.
func (s *Service) Provider() ai.Provider {
	return s.provider
}

// NewManager builds the ingestion manager over this service's stores. The
// sweep marker is wired in automatically; callers may add further options.
func (s *Service) NewManager(pipelineOpts []ingest.PipelineOption, managerOpts ...ingest.ManagerOption) (*ingest.Manager, error) {
	pipeline, err := ingest.NewPipeline(s.tasks, s.cache, s.index, s.provider, pipelineOpts...)
	if err != nil {
		return nil, err
	}
	managerOpts = append([]ingest.ManagerOption{ingest.WithSweepMarker(s.marker)}, managerOpts...)
	return ingest.NewManager(s.tasks, pipeline, managerOpts...)
}
