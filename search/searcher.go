package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/keyword"
	"github.com/poiesic/sift/semantic"
	"github.com/poiesic/sift/storage"
)

const (
	// DefaultSemanticWeight is the share of the semantic score in hybrid mode.
	DefaultSemanticWeight = 0.5

	// DefaultCandidateFactor multiplies offset+limit to size the kNN query.
	DefaultCandidateFactor = 3
)

// Searcher provides keyword, semantic and hybrid search over indexed chunks.
// It is safe for concurrent use.
type Searcher struct {
	chunks    storage.ChunkRepository
	documents storage.DocumentRepository
	embedder  ai.Embedder
	ranker    *semantic.Ranker
	scorer    *keyword.Scorer

	calibration     semantic.Calibration
	weights         keyword.Weights
	semanticWeight  float64
	candidateFactor int
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDocuments enables document lookups for URLs and authors.
func WithDocuments(documents storage.DocumentRepository) Option {
	return func(s *Searcher) error {
		s.documents = documents
		return nil
	}
}

// WithSemanticWeight sets the semantic share of the hybrid score.
// The keyword share is 1 - weight.
func WithSemanticWeight(weight float64) Option {
	return func(s *Searcher) error {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%w: semantic weight %v not in [0, 1]", core.ErrConfiguration, weight)
		}
		s.semanticWeight = weight
		return nil
	}
}

// WithCandidateFactor sets how many chunk candidates the semantic path
// fetches per requested document.
func WithCandidateFactor(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			return fmt.Errorf("%w: candidate factor must be at least 1", core.ErrConfiguration)
		}
		s.candidateFactor = factor
		return nil
	}
}

// WithCalibration sets the distance to similarity mapping.
func WithCalibration(c semantic.Calibration) Option {
	return func(s *Searcher) error {
		if c == nil {
			return fmt.Errorf("%w: calibration cannot be nil", core.ErrConfiguration)
		}
		s.calibration = c
		return nil
	}
}

// WithKeywordWeights overrides the keyword scoring weights.
func WithKeywordWeights(w keyword.Weights) Option {
	return func(s *Searcher) error {
		s.weights = w
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:          chunks,
		embedder:        embedder,
		calibration:     semantic.Linear(semantic.DefaultMaxDistance),
		weights:         keyword.DefaultWeights(),
		semanticWeight:  DefaultSemanticWeight,
		candidateFactor: DefaultCandidateFactor,
		logger:          slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	ranker, err := semantic.NewRanker(chunks,
		semantic.WithCalibration(s.calibration),
		semantic.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.ranker = ranker
	s.scorer = keyword.NewScorer(s.weights)

	return s, nil
}

// Search runs a query and returns one result per matching document.
func (s *Searcher) Search(ctx context.Context, query core.SearchQuery) (*core.SearchResponse, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor runs a query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Invalid queries are rejected before the index or embedder is touched.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query core.SearchQuery, monitor SearchMonitor) (*core.SearchResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	started := time.Now()

	query = query.WithDefaults()
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	monitor.Start(query)

	hits, err := s.retrieve(ctx, query, monitor)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := s.merge(hits)
	total := len(merged)
	page := paginate(merged, query.Offset, query.Limit)

	results, err := s.buildResults(ctx, hits.mode, page)
	if err != nil {
		return nil, err
	}
	monitor.AfterMerge(results)

	metadata := map[string]any{
		"search_type":         string(query.Mode),
		"threshold_applied":   query.Threshold(),
		"degraded":            hits.degraded != nil,
		"semantic_candidates": len(hits.semantic),
		"keyword_candidates":  len(hits.keyword),
	}
	if hits.degraded != nil {
		metadata["degraded_reason"] = hits.degraded.Error()
	}
	if query.Mode == core.SearchModeHybrid {
		metadata["semantic_weight"] = s.semanticWeight
	}

	response := &core.SearchResponse{
		Query:        query,
		Results:      results,
		TotalResults: total,
		SearchTimeMs: float64(time.Since(started).Microseconds()) / 1000,
		Metadata:     metadata,
	}
	monitor.Finish(response)

	s.logger.Debug("search complete", "mode", query.Mode, "served", hits.mode,
		"total", total, "returned", len(results), "ms", response.SearchTimeMs)
	return response, nil
}

// pathHits holds the ranked chunk hits of each retrieval path.
type pathHits struct {
	keyword  []core.ScoredChunk
	semantic []core.ScoredChunk
	// mode is the mode actually served, keyword when degraded.
	mode     core.SearchMode
	degraded error
}

func (s *Searcher) retrieve(ctx context.Context, q core.SearchQuery, monitor SearchMonitor) (*pathHits, error) {
	switch q.Mode {
	case core.SearchModeKeyword:
		hits, err := s.keywordSearch(ctx, q)
		if err != nil {
			return nil, err
		}
		monitor.AfterKeywordSearch(hits)
		return &pathHits{keyword: hits, mode: core.SearchModeKeyword}, nil

	case core.SearchModeSemantic:
		hits, err := s.semanticSearch(ctx, q)
		if err == nil {
			monitor.AfterSemanticSearch(hits)
			return &pathHits{semantic: hits, mode: core.SearchModeSemantic}, nil
		}
		if !errors.Is(err, core.ErrEmbeddingUnavailable) {
			return nil, err
		}
		kwHits, kwErr := s.keywordSearch(ctx, q)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if kwErr == nil {
			monitor.AfterKeywordSearch(kwHits)
		}
		return s.fallback(kwHits, kwErr, err, monitor)

	default:
		var (
			wg              sync.WaitGroup
			kwHits, semHits []core.ScoredChunk
			kwErr, semErr   error
		)
		wg.Go(func() { kwHits, kwErr = s.keywordSearch(ctx, q) })
		wg.Go(func() { semHits, semErr = s.semanticSearch(ctx, q) })
		wg.Wait()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if kwErr == nil {
			monitor.AfterKeywordSearch(kwHits)
		}
		if errors.Is(semErr, core.ErrEmbeddingUnavailable) {
			return s.fallback(kwHits, kwErr, semErr, monitor)
		}
		if semErr != nil {
			return nil, semErr
		}
		if kwErr != nil {
			return nil, kwErr
		}
		monitor.AfterSemanticSearch(semHits)
		return &pathHits{keyword: kwHits, semantic: semHits, mode: core.SearchModeHybrid}, nil
	}
}

// fallback serves keyword hits after the embedder failed.
// Without keyword hits the embedding failure is returned as is.
func (s *Searcher) fallback(kwHits []core.ScoredChunk, kwErr, embedErr error, monitor SearchMonitor) (*pathHits, error) {
	if kwErr != nil {
		s.logger.Error("no search path available", "embedding_err", embedErr, "keyword_err", kwErr)
		return nil, fmt.Errorf("%w: %w; keyword search: %w", core.ErrServiceUnavailable, embedErr, kwErr)
	}
	if len(kwHits) == 0 {
		return nil, embedErr
	}

	s.logger.Warn("embedding unavailable, serving keyword results", "err", embedErr)
	monitor.Degraded(embedErr)
	return &pathHits{keyword: kwHits, mode: core.SearchModeKeyword, degraded: embedErr}, nil
}

// keywordSearch scores every chunk in the query's category.
func (s *Searcher) keywordSearch(ctx context.Context, q core.SearchQuery) ([]core.ScoredChunk, error) {
	kq := keyword.ParseQuery(q.Text, q.CaseSensitive)

	hits := []core.ScoredChunk{}
	err := s.chunks.ForEachChunk(ctx, q.Category, func(chunk *core.Chunk) error {
		if hit, ok := s.scorer.Score(kq, chunk); ok {
			hits = append(hits, hit)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("keyword scan failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	keyword.Rank(hits)
	return hits, nil
}

// semanticSearch embeds the query and ranks its nearest chunks.
// Embedder failures wrap core.ErrEmbeddingUnavailable.
func (s *Searcher) semanticSearch(ctx context.Context, q core.SearchQuery) ([]core.ScoredChunk, error) {
	vector, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, core.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", core.ErrEmbeddingUnavailable)
	}

	k := (q.Offset + q.Limit) * s.candidateFactor
	return s.ranker.Rank(ctx, vector, k, q.Category, q.Threshold())
}

// buildResults projects candidates onto documents.
func (s *Searcher) buildResults(ctx context.Context, mode core.SearchMode, page []*candidate) ([]*core.SearchResult, error) {
	documents := map[string]*core.Document{}
	if s.documents != nil && len(page) > 0 {
		ids := make([]string, len(page))
		for i, c := range page {
			ids[i] = c.chunk().DocumentId
		}
		docs, err := s.documents.GetDocuments(ctx, ids...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
		}
		for _, doc := range docs {
			documents[doc.Id] = doc
		}
	}

	results := make([]*core.SearchResult, 0, len(page))
	for _, c := range page {
		chunk := c.chunk()
		metadata := map[string]any{
			"chunk_id": chunk.Id,
			"ordinal":  chunk.Ordinal,
		}
		if c.semantic != nil {
			metadata["distance"] = c.semantic.Distance
		}
		if c.keyword != nil {
			metadata["term_matches"] = c.keyword.TermMatches
		}
		if mode == core.SearchModeHybrid {
			metadata["semantic_score"] = c.semanticScore
			metadata["keyword_score"] = c.keywordScore
		}

		result := &core.SearchResult{
			DocumentId:  chunk.DocumentId,
			Title:       chunk.Title,
			Category:    chunk.Category,
			Slug:        chunk.Slug,
			Excerpt:     excerpt(chunk.Text),
			Content:     chunk.Text,
			Score:       c.score,
			PublishDate: chunk.PublishDate,
			Tags:        chunk.Tags,
			Metadata:    metadata,
		}
		if doc, ok := documents[chunk.DocumentId]; ok {
			result.URL = doc.URL
			if doc.Author != "" {
				metadata["author"] = doc.Author
			}
		}
		if result.Tags == nil {
			result.Tags = []string{}
		}
		results = append(results, result)
	}
	return results, nil
}
