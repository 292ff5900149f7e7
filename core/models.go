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
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash generates a deterministic fingerprint of text using BLAKE2b.
// Identical text always produces the identical hash, which makes it usable
// as an embedding cache key.
func ContentHash(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentID builds the identifier of the document stored under category/slug.
func DocumentID(category, slug string) string {
	return category + "/" + slug
}

// ChunkID builds the stable identifier of a chunk from its document and ordinal.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s#%04d", documentID, ordinal)
}

// DocumentRef locates a document in a content source before it is loaded.
type DocumentRef struct {
	Category string
	Slug     string
}

// ID returns the identifier the referenced document is stored under.
func (r DocumentRef) ID() string {
	return DocumentID(r.Category, r.Slug)
}

// Document is a single article loaded from the content source.
type Document struct {
	Id          string
	Title       string
	Category    string
	Slug        string
	Author      string
	Description string
	URL         string
	PublishDate time.Time
	Tags        []string
	Body        string    // Plain text body used for chunking
	ContentHash string    // Hash of Body, populated by the indexer
	IndexedAt   time.Time // When the document was last written to the index
}

// NormalizeTags lowercases, trims, deduplicates and sorts tags so they behave
// as a set.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		result = append(result, tag)
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// Chunk is a contiguous token window of a document body.
// It carries a copy of the parent document metadata so it can be filtered
// without a lookup.
type Chunk struct {
	Id          string
	DocumentId  string
	Ordinal     int
	StartToken  int // Offset of the first token within the document
	TokenCount  int
	Text        string
	ContentHash string
	Category    string
	Slug        string
	Title       string
	Tags        []string
	PublishDate time.Time
	Vector      []float32 // Populated by the indexer
}

// EmbeddingVector is a cached embedding for a piece of chunk text.
type EmbeddingVector struct {
	ChunkId     string // Chunk that first produced this vector
	ContentHash string
	Model       string
	Vector      []float32
	GeneratedAt time.Time
}

// Neighbor is a raw nearest-neighbor answer from a vector index.
type Neighbor struct {
	Chunk    *Chunk
	Distance float64 // Squared Euclidean distance
}
