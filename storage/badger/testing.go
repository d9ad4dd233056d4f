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


package badger

import "github.com/poiesic/mediamind/storage"

// NewMemoryStores creates in-memory task, cache, and index stores for
// testing. Returns tasks, cache, index, backend, and error.
// Caller must close the repositories and backend when done.
func NewMemoryStores() (storage.TaskRepository, storage.AnalysisCache, storage.IndexRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	tasks, err := NewTaskRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, nil, err
	}

	cache, err := NewAnalysisCache(backend)
	if err != nil {
		tasks.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	index, err := NewIndexRepository(backend)
	if err != nil {
		cache.Close()
		tasks.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	return tasks, cache, index, backend, nil
}
