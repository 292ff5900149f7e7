package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/chunking"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 16

	// DefaultMaxAttempts is the number of tries per embedding request.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the wait before the first retry.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Stores groups the repositories a pipeline writes to.
type Stores struct {
	Documents storage.DocumentRepository
	Chunks    storage.ChunkRepository
	Cache     storage.EmbeddingCache
	Meta      storage.MetaRepository
}

// Pipeline orchestrates indexing runs.
// Only one run executes at a time; concurrent callers wait.
type Pipeline struct {
	source     Source
	documents  storage.DocumentRepository
	chunks     storage.ChunkRepository
	cache      storage.EmbeddingCache
	meta       storage.MetaRepository
	chunker    *chunking.Chunker
	embeddings *embeddingProcessor
	pool       *ants.Pool

	chunkSize   int
	overlap     int
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	model       string
	progress    io.Writer

	runLock sync.Locker
	writeMu sync.Mutex
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunking sets the chunk size and overlap in tokens.
// Invalid sizing fails pipeline construction with core.ErrConfiguration.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if err := chunking.Validate(size, overlap); err != nil {
			return err
		}
		p.chunkSize = size
		p.overlap = overlap
		return nil
	}
}

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be at least 1", core.ErrConfiguration)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per embedding request and the initial backoff.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: %w", core.ErrConfiguration, ErrInvalidMaxAttempts)
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = delay
		return nil
	}
}

// WithModel records the embedding model name in the index metadata.
func WithModel(model string) Option {
	return func(p *Pipeline) error {
		p.model = model
		return nil
	}
}

// WithProgress reports per-document progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithRunLock serializes runs on lock instead of a private mutex, so that
// other index writers can exclude runs by holding the same lock.
func WithRunLock(lock sync.Locker) Option {
	return func(p *Pipeline) error {
		if lock == nil {
			return fmt.Errorf("%w: run lock cannot be nil", core.ErrConfiguration)
		}
		p.runLock = lock
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(source Source, stores Stores, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	switch {
	case source == nil:
		return nil, ErrSourceRequired
	case stores.Documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case stores.Chunks == nil:
		return nil, ErrChunkRepositoryRequired
	case stores.Cache == nil:
		return nil, ErrEmbeddingCacheRequired
	case stores.Meta == nil:
		return nil, ErrMetaRepositoryRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:      source,
		documents:   stores.Documents,
		chunks:      stores.Chunks,
		cache:       stores.Cache,
		meta:        stores.Meta,
		pool:        pool,
		chunkSize:   chunking.DefaultChunkSize,
		overlap:     chunking.DefaultOverlap,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		runLock:     &sync.Mutex{},
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "indexer")

	chunker, err := chunking.New(p.chunkSize, p.overlap)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.chunker = chunker

	p.embeddings = &embeddingProcessor{
		embedder:   embedder,
		cache:      stores.Cache,
		batchSize:  p.batchSize,
		maxRetries: p.maxAttempts,
		retryDelay: p.retryDelay,
		logger:     p.logger.With("processor", "embeddings"),
	}

	return p, nil
}

// RunOptions holds optional parameters for a run.
type RunOptions struct {
	// Force re-embeds every chunk instead of reusing cached vectors.
	Force bool
}

// Run indexes every document inside scope and removes indexed documents in
// scope that the source no longer has or now excludes.
//
// Per-document failures are recorded in the result and do not stop the run.
// An error is returned only when the run could not proceed at all or the
// context was cancelled; in the latter case the partial result is returned
// alongside the context error.
func (p *Pipeline) Run(ctx context.Context, scope core.IndexScope, opts *RunOptions) (*core.IndexingResult, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	if scope.Slug != "" && scope.Category == "" {
		return nil, fmt.Errorf("%w: slug scope requires a category", core.ErrConfiguration)
	}

	p.runLock.Lock()
	defer p.runLock.Unlock()

	p.embeddings.reset()
	defer p.embeddings.reset()

	result := &core.IndexingResult{
		OperationId: uuid.NewString(),
		Scope:       scope,
		Status:      core.IndexingCompleted,
		StartedAt:   time.Now().UTC(),
	}
	logger := p.logger.With("operation", result.OperationId, "scope", scope.String())
	logger.Info("indexing started", "force", opts.Force)

	meta, err := p.meta.LoadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	if meta == nil {
		meta = &core.IndexMeta{}
	}
	if meta.EmbeddingModel != "" && p.model != "" && meta.EmbeddingModel != p.model {
		warning := fmt.Sprintf("embedding model changed from %s to %s; clear the index if dimensions differ",
			meta.EmbeddingModel, p.model)
		logger.Warn(warning)
		result.Warnings = append(result.Warnings, warning)
	}

	refs, err := p.source.Discover(ctx, scope)
	if err != nil {
		return nil, err
	}
	logger.Info("documents discovered", "count", len(refs))

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(refs), max(1, len(refs)/100))
		tracker.Start()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		present = make(map[string]bool, len(refs))
	)
	record := func(o documentOutcome) {
		mu.Lock()
		defer mu.Unlock()
		p.tally(result, o)
		if o.status != documentSkipped {
			present[o.ref.ID()] = true
		}
		if tracker != nil {
			tracker.Increment(1)
		}
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			record(p.processDocument(ctx, ref, meta, opts.Force))
		})
		if submitErr != nil {
			wg.Done()
			record(documentOutcome{ref: ref, status: documentFailed, err: submitErr})
		}
	}
	wg.Wait()
	if tracker != nil {
		tracker.Finish()
	}

	if err := ctx.Err(); err != nil {
		p.finish(result)
		result.Status = core.IndexingPartial
		logger.Warn("indexing cancelled", "processed", result.DocumentsProcessed)
		return result, err
	}

	removed, err := p.prune(ctx, scope, present)
	if err != nil {
		logger.Error("failed to remove stale documents", "err", err)
		result.Errors = append(result.Errors, err.Error())
	}
	result.DocumentsRemoved = removed

	meta.LastOperation = result.OperationId
	if p.model != "" {
		meta.EmbeddingModel = p.model
	}
	if err := p.meta.SaveMeta(ctx, meta); err != nil {
		logger.Error("failed to save index metadata", "err", err)
		result.Errors = append(result.Errors, err.Error())
	}

	p.finish(result)
	logger.Info("indexing finished",
		"status", result.Status,
		"processed", result.DocumentsProcessed,
		"skipped", result.DocumentsSkipped,
		"failed", result.DocumentsFailed,
		"removed", result.DocumentsRemoved,
		"chunks", result.ChunksCreated,
		"generated", result.EmbeddingsGenerated,
		"cache_hits", result.CacheHits,
		"duration", result.Duration())
	return result, nil
}

// tally folds one document outcome into the run result.
func (p *Pipeline) tally(result *core.IndexingResult, o documentOutcome) {
	switch o.status {
	case documentProcessed:
		result.DocumentsProcessed++
		result.ChunksCreated += o.chunks
		result.EmbeddingsGenerated += o.generated
		result.CacheHits += o.cacheHits
	case documentSkipped:
		result.DocumentsSkipped++
		if o.err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", o.ref.ID(), o.err))
		}
	case documentFailed:
		result.DocumentsFailed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.ref.ID(), o.err))
	}
}

// finish stamps the completion time and derives the final status.
func (p *Pipeline) finish(result *core.IndexingResult) {
	result.CompletedAt = time.Now().UTC()
	switch {
	case len(result.Errors) == 0:
		result.Status = core.IndexingCompleted
	case result.DocumentsProcessed == 0 && result.DocumentsFailed > 0:
		result.Status = core.IndexingFailed
	default:
		result.Status = core.IndexingPartial
	}
}

// prune removes indexed documents inside scope that are not in present.
func (p *Pipeline) prune(ctx context.Context, scope core.IndexScope, present map[string]bool) (int, error) {
	indexed, err := p.documents.ListDocuments(ctx, scope.Category)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	var stale []string
	for _, doc := range indexed {
		if !scope.Contains(doc.Category, doc.Slug) || present[doc.Id] {
			continue
		}
		stale = append(stale, doc.Id)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.chunks.DeleteChunks(ctx, stale...); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	if err := p.documents.DeleteDocuments(ctx, stale...); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	p.logger.Info("removed stale documents", "count", len(stale))
	return len(stale), nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
