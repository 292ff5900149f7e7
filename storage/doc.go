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


// Package storage provides the storage abstraction layer for sift.
//
// This package defines repository interfaces that decouple storage implementation
// from indexing and search logic. The badger sub-package implements all of them on
// a single BadgerDB instance.
//
// # Architecture
//
//   - VectorSearcher: nearest-neighbor queries over chunk vectors
//   - ChunkRepository: chunks with their vectors, replaced per document
//   - DocumentRepository: document metadata and bodies
//   - EmbeddingCache: write-once content hash to vector mapping
//   - MetaRepository: index-wide facts such as the vector dimension
//
// # Usage
//
//	repos, err := badger.OpenRepositories("/path/to/index", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
// Scans stop as soon as the context is done.
package storage
