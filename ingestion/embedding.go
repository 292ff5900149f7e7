package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// embeddingProcessor assigns vectors to chunks, consulting the cache first.
type embeddingProcessor struct {
	embedder   ai.Embedder
	cache      storage.EmbeddingCache
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	// flights tracks hashes embedded during the current run so that
	// concurrent documents sharing chunk text embed it once.
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the embedding of one content hash, pending until done is closed.
type flight struct {
	done   chan struct{}
	vector []float32
	err    error
}

// reset forgets the hashes embedded by a previous run.
func (ep *embeddingProcessor) reset() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.flights = make(map[string]*flight)
}

// claim splits hashes into those this caller must embed and those another
// worker already embeds or has embedded in this run.
func (ep *embeddingProcessor) claim(hashes []string) (owned []string, shared map[string]*flight) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.flights == nil {
		ep.flights = make(map[string]*flight)
	}

	shared = make(map[string]*flight)
	for _, hash := range hashes {
		if f, ok := ep.flights[hash]; ok {
			shared[hash] = f
			continue
		}
		ep.flights[hash] = &flight{done: make(chan struct{})}
		owned = append(owned, hash)
	}
	return owned, shared
}

// land completes the flight for hash. A failed flight is forgotten so a
// later document can try again.
func (ep *embeddingProcessor) land(hash string, vector []float32, err error) {
	ep.mu.Lock()
	f := ep.flights[hash]
	if err != nil {
		delete(ep.flights, hash)
	}
	ep.mu.Unlock()

	if f == nil {
		return
	}
	f.vector, f.err = vector, err
	close(f.done)
}

// embeddingOutcome describes where a document's vectors came from.
type embeddingOutcome struct {
	// fresh holds vectors produced by the embedder, one per distinct hash.
	fresh     []*core.EmbeddingVector
	cacheHits int
}

// process sets Vector on every chunk. Chunks whose content hash is cached
// reuse the stored vector unless force is set. A hash is embedded at most
// once per run; the rest are embedded in batches with retries.
func (ep *embeddingProcessor) process(ctx context.Context, chunks []*core.Chunk, force bool) (*embeddingOutcome, error) {
	outcome := &embeddingOutcome{}
	if len(chunks) == 0 {
		return outcome, nil
	}

	hashes := make([]string, 0, len(chunks))
	texts := make(map[string]string, len(chunks))
	firstChunk := make(map[string]string, len(chunks))
	for _, chunk := range chunks {
		if _, ok := texts[chunk.ContentHash]; ok {
			continue
		}
		texts[chunk.ContentHash] = chunk.Text
		firstChunk[chunk.ContentHash] = chunk.Id
		hashes = append(hashes, chunk.ContentHash)
	}

	vectors := make(map[string][]float32, len(hashes))
	cachedHashes := make(map[string]bool, len(hashes))
	if !force {
		cached, err := ep.cache.GetEmbeddings(ctx, hashes...)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding cache: %w", core.ErrIndexUnavailable, err)
		}
		for hash, v := range cached {
			vectors[hash] = v.Vector
			cachedHashes[hash] = true
		}
	}

	var misses []string
	for _, hash := range hashes {
		if _, ok := vectors[hash]; !ok {
			misses = append(misses, hash)
		}
	}

	owned, shared := ep.claim(misses)

	for start := 0; start < len(owned); start += ep.batchSize {
		batch := owned[start:min(start+ep.batchSize, len(owned))]
		batchTexts := make([]string, len(batch))
		for i, hash := range batch {
			batchTexts[i] = texts[hash]
		}

		embedded, err := ep.embedBatch(ctx, batchTexts)
		if err != nil {
			for _, hash := range owned[start:] {
				ep.land(hash, nil, err)
			}
			return nil, err
		}

		now := time.Now().UTC()
		for i, hash := range batch {
			vectors[hash] = embedded[i]
			ep.land(hash, embedded[i], nil)
			outcome.fresh = append(outcome.fresh, &core.EmbeddingVector{
				ContentHash: hash,
				ChunkId:     firstChunk[hash],
				Vector:      embedded[i],
				GeneratedAt: now,
			})
		}
	}

	// Owned hashes are landed before waiting, so workers never wait on each other in a cycle.
	for hash, f := range shared {
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if f.err != nil {
			return nil, f.err
		}
		vectors[hash] = f.vector
		cachedHashes[hash] = true
	}

	for _, chunk := range chunks {
		chunk.Vector = vectors[chunk.ContentHash]
		if cachedHashes[chunk.ContentHash] {
			outcome.cacheHits++
		}
	}

	ep.logger.Debug("chunks embedded", "chunks", len(chunks), "generated", len(outcome.fresh), "cache_hits", outcome.cacheHits)
	return outcome, nil
}

// embedBatch embeds texts, retrying transient failures.
func (ep *embeddingProcessor) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embedded [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embedded, err = ep.embedder.EmbedTexts(ctx, texts)
		return err
	}, ep.maxRetries, ep.retryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, core.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
		}
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", ep.maxRetries, err)
	}

	if len(embedded) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			core.ErrEmbeddingUnavailable, len(texts), len(embedded))
	}
	for _, v := range embedded {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding vector", core.ErrEmbeddingUnavailable)
		}
	}
	return embedded, nil
}
