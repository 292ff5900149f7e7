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


// Package search answers queries over the chunk index.
//
// The Searcher dispatches a query to the keyword path, the semantic path or
// both, then collapses chunk hits into one result per document:
//   - Keyword search scores every chunk in scope with term statistics
//   - Semantic search embeds the query and ranks nearest neighbors
//   - Hybrid search runs both concurrently and blends normalized scores
//
// Offset and limit are applied after deduplication, so they count documents.
// When the embedding service is down, semantic and hybrid queries fall back
// to keyword results and flag the response as degraded.
package search
