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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// documentStatus is the fate of one document within a run.
type documentStatus int

const (
	documentProcessed documentStatus = iota
	documentSkipped
	documentFailed
)

// documentOutcome is what processing one document produced.
type documentOutcome struct {
	ref       core.DocumentRef
	status    documentStatus
	chunks    int
	generated int
	cacheHits int
	err       error
}

// processDocument loads, chunks, embeds and stores a single document.
// Failures are reported in the outcome and never abort the run.
func (p *Pipeline) processDocument(ctx context.Context, ref core.DocumentRef, meta *core.IndexMeta, force bool) documentOutcome {
	outcome := documentOutcome{ref: ref}
	logger := p.logger.With("document", ref.ID())

	doc, err := p.source.Load(ctx, ref)
	if err != nil {
		outcome.err = err
		if errors.Is(err, core.ErrDocumentExcluded) {
			logger.Debug("document excluded", "reason", err)
			outcome.status = documentSkipped
			return outcome
		}
		logger.Warn("failed to load document", "err", err)
		outcome.status = documentFailed
		return outcome
	}

	if err := core.ValidateDocument(doc); err != nil {
		logger.Warn("invalid document", "err", err)
		outcome.status = documentFailed
		outcome.err = err
		return outcome
	}
	if doc.ContentHash == "" {
		doc.ContentHash = core.ContentHash(doc.Body)
	}

	chunks := p.chunker.Chunk(doc)
	if len(chunks) == 0 {
		outcome.status = documentSkipped
		outcome.err = fmt.Errorf("%w: %w", core.ErrDocumentExcluded, core.ErrEmptyBody)
		return outcome
	}

	embedded, err := p.embeddings.process(ctx, chunks, force)
	if err != nil {
		logger.Error("failed to embed document", "err", err)
		outcome.status = documentFailed
		outcome.err = err
		return outcome
	}

	if err := p.store(ctx, doc, chunks, embedded, meta); err != nil {
		logger.Error("failed to store document", "err", err)
		outcome.status = documentFailed
		outcome.err = err
		return outcome
	}

	outcome.status = documentProcessed
	outcome.chunks = len(chunks)
	outcome.generated = len(embedded.fresh)
	outcome.cacheHits = embedded.cacheHits
	logger.Debug("document indexed", "chunks", outcome.chunks, "generated", outcome.generated, "cache_hits", outcome.cacheHits)
	return outcome
}

// store writes a document, its chunks and new cache entries.
// Writes are serialized across workers. The first vector stored fixes the
// index dimension.
func (p *Pipeline) store(ctx context.Context, doc *core.Document, chunks []*core.Chunk, embedded *embeddingOutcome, meta *core.IndexMeta) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	dimension := meta.Dimension
	if dimension == 0 {
		dimension = len(chunks[0].Vector)
	}
	for _, chunk := range chunks {
		if len(chunk.Vector) != dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				storage.ErrDimensionMismatch, chunk.Id, len(chunk.Vector), dimension)
		}
	}

	if len(embedded.fresh) > 0 {
		if _, err := p.cache.PutEmbeddings(ctx, embedded.fresh...); err != nil {
			return fmt.Errorf("%w: embedding cache: %w", core.ErrIndexUnavailable, err)
		}
	}
	if err := p.chunks.ReplaceChunks(ctx, doc.Id, chunks...); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	doc.IndexedAt = time.Now().UTC()
	if err := p.documents.PutDocuments(ctx, doc); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	meta.Dimension = dimension
	return nil
}
