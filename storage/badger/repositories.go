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

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend   *Backend
	Documents *DocumentRepository
	Chunks    *ChunkRepository
	Meta      *MetaRepository
}

// OpenRepositories opens a backend and creates every repository on top of it.
// Caller must call Close when done.
func OpenRepositories(filePath string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:   backend,
		Documents: documents,
		Chunks:    chunks,
		Meta:      NewMetaRepository(backend),
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}

// EmbeddingCache returns a cache namespaced by model on the shared backend.
func (r *Repositories) EmbeddingCache(model string) *EmbeddingCache {
	return NewEmbeddingCache(r.Backend, model)
}

// Close closes the repositories and the backend.
func (r *Repositories) Close() error {
	r.Chunks.Close()
	r.Documents.Close()
	return r.Backend.Close()
}
