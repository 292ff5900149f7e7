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


// Package sift is a hybrid semantic and keyword search engine for articles.
//
// An Engine owns the on-disk index and the embedding client, and hands out
// the two workers that use them: an indexing pipeline that keeps the index
// in step with a content source, and a searcher that answers queries.
package sift

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/ai/openai"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/search"
	"github.com/poiesic/sift/storage/badger"
)

// Engine ties the index storage to an embedder.
type Engine struct {
	repos    *badger.Repositories
	embedder ai.Embedder
	model    string
	logger   *slog.Logger

	// writeMu is shared by every pipeline of the engine and by Clear.
	writeMu sync.Mutex
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	embedder ai.Embedder
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithEmbedder uses embedder instead of building a client from the AI config.
// The configured model name still namespaces the embedding cache.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *engineOptions) {
		o.embedder = embedder
	}
}

// WithInMemory keeps the index in memory. The path is ignored.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens or creates the index at path.
func Open(path string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := options.aiConfig.Validate(); err != nil {
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	repos, err := badger.OpenRepositories(path, options.inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	return &Engine{
		repos:    repos,
		embedder: embedder,
		model:    options.aiConfig.EmbeddingModel,
		logger:   options.logger,
	}, nil
}

// Close releases the index.
func (e *Engine) Close() error {
	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing index", "err", err)
		return err
	}
	return nil
}

// Location describes where the index lives.
func (e *Engine) Location() string {
	return e.repos.Backend.Location()
}

// Embedder returns the embedder shared by indexing and search.
func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

// NewPipeline creates an indexing pipeline reading from source.
func (e *Engine) NewPipeline(source ingestion.Source, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	stores := ingestion.Stores{
		Documents: e.repos.Documents,
		Chunks:    e.repos.Chunks,
		Cache:     e.repos.EmbeddingCache(e.model),
		Meta:      e.repos.Meta,
	}
	defaults := []ingestion.Option{
		ingestion.WithModel(e.model),
		ingestion.WithLogger(e.logger),
		ingestion.WithRunLock(&e.writeMu),
	}
	return ingestion.NewPipeline(source, stores, e.embedder, append(defaults, opts...)...)
}

// NewSearcher creates a searcher over the index.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	defaults := []search.Option{search.WithDocuments(e.repos.Documents), search.WithLogger(e.logger)}
	return search.NewSearcher(e.repos.Chunks, e.embedder, append(defaults, opts...)...)
}

// Stats summarizes the index per category.
func (e *Engine) Stats(ctx context.Context) (*core.IndexStats, error) {
	docs, err := e.repos.Documents.ListDocuments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	chunkCounts, err := e.repos.Chunks.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	meta, err := e.repos.Meta.LoadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	stats := &core.IndexStats{
		Categories: map[string]*core.CategoryStats{},
		Location:   e.Location(),
	}
	category := func(name string) *core.CategoryStats {
		c, ok := stats.Categories[name]
		if !ok {
			c = &core.CategoryStats{}
			stats.Categories[name] = c
		}
		return c
	}

	for _, doc := range docs {
		c := category(doc.Category)
		c.Documents++
		if doc.IndexedAt.After(c.LastUpdated) {
			c.LastUpdated = doc.IndexedAt
		}
		if doc.IndexedAt.After(stats.LastUpdated) {
			stats.LastUpdated = doc.IndexedAt
		}
		stats.TotalDocuments++
	}
	for name, n := range chunkCounts {
		category(name).Chunks = n
		stats.TotalChunks += n
	}
	if meta != nil {
		stats.Dimension = meta.Dimension
		stats.EmbeddingModel = meta.EmbeddingModel
	}
	return stats, nil
}

// Clear removes the documents and chunks of a category, or of every
// category when category is empty. Cached embeddings are kept. Clearing
// everything also forgets the vector dimension so a different embedding
// model can be used afterwards. Clear waits for running indexing runs.
func (e *Engine) Clear(ctx context.Context, category string) (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	docs, err := e.repos.Documents.ListDocuments(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.Id
	}

	if len(ids) > 0 {
		if err := e.repos.Chunks.DeleteChunks(ctx, ids...); err != nil {
			return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
		}
		if err := e.repos.Documents.DeleteDocuments(ctx, ids...); err != nil {
			return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
		}
	}

	if category == "" {
		meta, err := e.repos.Meta.LoadMeta(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
		}
		if meta != nil {
			meta.Dimension = 0
			if err := e.repos.Meta.SaveMeta(ctx, meta); err != nil {
				return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
			}
		}
	}

	e.logger.Info("index cleared", "category", category, "documents", len(ids))
	return len(ids), nil
}
