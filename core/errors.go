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


package core

import "errors"

// Error taxonomy shared by indexing and search.
var (
	// ErrConfiguration indicates invalid settings. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrDocumentParse indicates a single document could not be parsed.
	// The document is skipped and indexing continues.
	ErrDocumentParse = errors.New("document parse error")

	// ErrDocumentExcluded indicates a document was deliberately left out of the index
	// (draft, archived, too short).
	ErrDocumentExcluded = errors.New("document excluded")

	// ErrEmbeddingUnavailable indicates the embedding provider failed.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexUnavailable indicates the vector index could not be read.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrServiceUnavailable indicates no search path could produce an answer.
	ErrServiceUnavailable = errors.New("search service unavailable")

	// ErrInvalidQuery indicates a query was rejected before any downstream call.
	ErrInvalidQuery = errors.New("invalid query")
)

// Validation details wrapped together with the errors above.
var (
	ErrEmptyQuery       = errors.New("query text cannot be empty")
	ErrLimitOutOfRange  = errors.New("limit out of range")
	ErrNegativeOffset   = errors.New("offset cannot be negative")
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
	ErrInvalidMode      = errors.New("unknown search mode")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrEmptySlug        = errors.New("slug cannot be empty")
	ErrEmptyCategory    = errors.New("category cannot be empty")
	ErrEmptyBody        = errors.New("body cannot be empty")
)
