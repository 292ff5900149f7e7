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


// Package chunking splits document bodies into overlapping token windows.
//
// A token is a maximal run of non-whitespace characters. Each chunk's text
// is the exact substring of the body spanning its tokens, so whitespace
// inside a chunk is preserved.
package chunking

import (
	"fmt"
	"unicode"

	"github.com/poiesic/sift/core"
)

const (
	DefaultChunkSize = 512
	DefaultOverlap   = 50
)

// Chunker produces fixed-size token windows with a fixed overlap.
// It holds no mutable state and is safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. The overlap must be strictly smaller than the chunk size.
func New(chunkSize, overlap int) (*Chunker, error) {
	if err := Validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: chunkSize, overlap: overlap}, nil
}

// Validate checks a chunk size and overlap pair.
func Validate(chunkSize, overlap int) error {
	if chunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", core.ErrConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap (%d) must be less than chunk size (%d)", core.ErrConfiguration, overlap, chunkSize)
	}
	return nil
}

// Size returns the configured chunk size in tokens.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits a document body into ordered chunks.
// A body without tokens yields no chunks.
func (c *Chunker) Chunk(doc *core.Document) []*core.Chunk {
	tokens := Tokenize(doc.Body)
	if len(tokens) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]*core.Chunk, 0, len(tokens)/step+1)
	for start := 0; ; start += step {
		end := min(start+c.size, len(tokens))
		text := doc.Body[tokens[start].Start:tokens[end-1].End]
		ordinal := len(chunks)
		chunks = append(chunks, &core.Chunk{
			Id:          core.ChunkID(doc.Id, ordinal),
			DocumentId:  doc.Id,
			Ordinal:     ordinal,
			StartToken:  start,
			TokenCount:  end - start,
			Text:        text,
			ContentHash: core.ContentHash(text),
			Category:    doc.Category,
			Slug:        doc.Slug,
			Title:       doc.Title,
			Tags:        doc.Tags,
			PublishDate: doc.PublishDate,
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// Token is the byte span of one token within a text.
type Token struct {
	Start int
	End   int
}

// Tokenize returns the byte spans of the whitespace separated tokens in text.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, Token{Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Start: start, End: len(text)})
	}
	return tokens
}
