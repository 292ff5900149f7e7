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

import (
	"fmt"
	"strings"
)

// ValidateQuery validates a SearchQuery before any downstream call.
//
// Validation rules:
//   - Text must contain at least one non-whitespace character
//   - Limit must be between 1 and MaxLimit
//   - Offset must not be negative
//   - SimilarityThreshold, when set, must be within [0, 1]
//   - Mode must be semantic, keyword or hybrid
//
// Every returned error wraps ErrInvalidQuery.
func ValidateQuery(q SearchQuery) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyQuery)
	}

	if q.Limit < 1 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: %w: %d not in 1..%d", ErrInvalidQuery, ErrLimitOutOfRange, q.Limit, MaxLimit)
	}

	if q.Offset < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrNegativeOffset)
	}

	if q.SimilarityThreshold != nil {
		t := *q.SimilarityThreshold
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: %w: %v", ErrInvalidQuery, ErrInvalidThreshold, t)
		}
	}

	switch q.Mode {
	case SearchModeSemantic, SearchModeKeyword, SearchModeHybrid:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidQuery, ErrInvalidMode, q.Mode)
	}

	return nil
}

// ValidateDocument validates a loaded Document.
//
// Validation rules:
//   - Title, Category and Slug must not be empty
//
// A blank body is valid here; it yields no chunks and the indexer skips it.
//
// Every returned error wraps ErrDocumentParse.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrDocumentParse)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrDocumentParse, ErrEmptyTitle)
	}

	if strings.TrimSpace(doc.Category) == "" {
		return fmt.Errorf("%w: %w", ErrDocumentParse, ErrEmptyCategory)
	}

	if strings.TrimSpace(doc.Slug) == "" {
		return fmt.Errorf("%w: %w", ErrDocumentParse, ErrEmptySlug)
	}

	return nil
}
