package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/sift/ai/mock"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/semantic"
	"github.com/poiesic/sift/storage"
	"github.com/poiesic/sift/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkSpec describes one chunk of a seeded document.
type chunkSpec struct {
	text   string
	vector []float32
}

func newTestRepositories(t *testing.T) *badger.Repositories {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func addDocument(t *testing.T, repos *badger.Repositories, id, title string, specs ...chunkSpec) {
	t.Helper()
	category, slug, _ := strings.Cut(id, "/")
	ctx := context.Background()

	chunks := make([]*core.Chunk, len(specs))
	for i, spec := range specs {
		chunks[i] = &core.Chunk{
			Id:          core.ChunkID(id, i),
			DocumentId:  id,
			Ordinal:     i,
			Text:        spec.text,
			ContentHash: core.ContentHash(spec.text),
			Category:    category,
			Slug:        slug,
			Title:       title,
			Vector:      spec.vector,
		}
	}
	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, id, chunks...))
	require.NoError(t, repos.Documents.PutDocuments(ctx, &core.Document{
		Id:       id,
		Title:    title,
		Category: category,
		Slug:     slug,
		URL:      "https://example.com/" + id,
		Body:     specs[0].text,
	}))
}

// queryEmbedder always embeds to the given vector.
func queryEmbedder(vector []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return m
}

// countingChunks counts index calls and injects failures.
type countingChunks struct {
	storage.ChunkRepository
	calls      atomic.Int32
	scanErr    error
	nearestErr error
	countErr   error
}

func (c *countingChunks) ForEachChunk(ctx context.Context, category string, fn func(*core.Chunk) error) error {
	c.calls.Add(1)
	if c.scanErr != nil {
		return c.scanErr
	}
	return c.ChunkRepository.ForEachChunk(ctx, category, fn)
}

func (c *countingChunks) FindNearest(ctx context.Context, vector []float32, k int, category string) ([]core.Neighbor, error) {
	c.calls.Add(1)
	if c.nearestErr != nil {
		return nil, c.nearestErr
	}
	return c.ChunkRepository.FindNearest(ctx, vector, k, category)
}

func (c *countingChunks) CountChunks(ctx context.Context) (map[string]int, error) {
	c.calls.Add(1)
	if c.countErr != nil {
		return nil, c.countErr
	}
	return c.ChunkRepository.CountChunks(ctx)
}

func query(text string, mode core.SearchMode) core.SearchQuery {
	q := core.NewSearchQuery(text)
	q.Mode = mode
	return q
}

func documentIDs(results []*core.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocumentId
	}
	return ids
}

func assertDistinctDocuments(t *testing.T, results []*core.SearchResult) {
	t.Helper()
	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.DocumentId], "duplicate document %s", r.DocumentId)
		seen[r.DocumentId] = true
	}
}

func TestNewSearcher(t *testing.T) {
	repos := newTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, embedder)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with options", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, embedder,
			WithLogger(slog.Default()),
			WithDocuments(repos.Documents),
			WithSemanticWeight(0.7),
			WithCandidateFactor(5),
			WithCalibration(semantic.Inverse),
		)
		require.NoError(t, err)
		assert.Equal(t, 0.7, searcher.semanticWeight)
		assert.Equal(t, 5, searcher.candidateFactor)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(repos.Chunks, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := NewSearcher(repos.Chunks, embedder, WithSemanticWeight(1.5))
		assert.ErrorIs(t, err, core.ErrConfiguration)

		_, err = NewSearcher(repos.Chunks, embedder, WithCandidateFactor(0))
		assert.ErrorIs(t, err, core.ErrConfiguration)

		_, err = NewSearcher(repos.Chunks, embedder, WithCalibration(nil))
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	repos := newTestRepositories(t)
	searcher, err := NewSearcher(repos.Chunks, mock.NewMockEmbedder())
	require.NoError(t, err)

	for _, mode := range []core.SearchMode{core.SearchModeKeyword, core.SearchModeSemantic, core.SearchModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			response, err := searcher.Search(context.Background(), query("anything", mode))
			require.NoError(t, err)
			assert.NotNil(t, response.Results)
			assert.Empty(t, response.Results)
			assert.Equal(t, 0, response.TotalResults)
			assert.Equal(t, false, response.Metadata["degraded"])
		})
	}
}

func TestSearch_InvalidQueryMakesNoDownstreamCalls(t *testing.T) {
	repos := newTestRepositories(t)
	chunks := &countingChunks{ChunkRepository: repos.Chunks}
	embedder := mock.NewMockEmbedder()
	searcher, err := NewSearcher(chunks, embedder)
	require.NoError(t, err)

	negative := -0.1
	tests := []struct {
		name  string
		query core.SearchQuery
	}{
		{"blank text", core.SearchQuery{Text: "   "}},
		{"limit too large", core.SearchQuery{Text: "go", Limit: 101}},
		{"negative limit", core.SearchQuery{Text: "go", Limit: -1}},
		{"negative offset", core.SearchQuery{Text: "go", Offset: -1}},
		{"threshold out of range", core.SearchQuery{Text: "go", SimilarityThreshold: &negative}},
		{"unknown mode", core.SearchQuery{Text: "go", Mode: "fuzzy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := searcher.Search(context.Background(), tt.query)
			assert.ErrorIs(t, err, core.ErrInvalidQuery)
		})
	}

	assert.Equal(t, int32(0), chunks.calls.Load())
	assert.Equal(t, 0, embedder.CallCount())
}

func TestSearch_KeywordTitleMatchRanksFirst(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "engineering/vector-stores", "Vector stores",
		chunkSpec{text: "We compared LanceDB with others."})
	addDocument(t, repos, "blog/lancedb-intro", "Getting started with LanceDB",
		chunkSpec{text: "This post covers lancedb setup."})
	addDocument(t, repos, "blog/unrelated", "Cooking",
		chunkSpec{text: "Nothing to see here."})

	searcher, err := NewSearcher(repos.Chunks, mock.NewMockEmbedder(), WithDocuments(repos.Documents))
	require.NoError(t, err)

	response, err := searcher.Search(context.Background(), query("LanceDB", core.SearchModeKeyword))
	require.NoError(t, err)
	require.Len(t, response.Results, 2)

	first := response.Results[0]
	assert.Equal(t, "blog/lancedb-intro", first.DocumentId)
	assert.InDelta(t, 1.0, first.Score, 1e-9)
	assert.Equal(t, "https://example.com/blog/lancedb-intro", first.URL)
	assert.Equal(t, 1, first.Metadata["term_matches"])
	assert.Equal(t, "blog/lancedb-intro#0000", first.Metadata["chunk_id"])

	second := response.Results[1]
	assert.Equal(t, "engineering/vector-stores", second.DocumentId)
	assert.Less(t, second.Score, first.Score)
	assert.Greater(t, second.Score, 0.0)
}

func TestSearch_KeywordCategoryFilter(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/a", "A", chunkSpec{text: "gopher notes"})
	addDocument(t, repos, "engineering/b", "B", chunkSpec{text: "gopher internals"})

	searcher, err := NewSearcher(repos.Chunks, mock.NewMockEmbedder())
	require.NoError(t, err)

	q := query("gopher", core.SearchModeKeyword)
	q.Category = "engineering"
	response, err := searcher.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"engineering/b"}, documentIDs(response.Results))
}

func TestSearch_DeduplicatesBeforePagination(t *testing.T) {
	repos := newTestRepositories(t)
	near := []float32{1, 0, 0}
	addDocument(t, repos, "blog/multi", "Multi",
		chunkSpec{text: "gopher gopher gopher one", vector: near},
		chunkSpec{text: "gopher two", vector: []float32{0.95, 0.05, 0}},
		chunkSpec{text: "gopher three", vector: []float32{0.9, 0.1, 0}},
	)
	addDocument(t, repos, "blog/one", "One", chunkSpec{text: "a gopher", vector: []float32{0.8, 0.2, 0}})
	addDocument(t, repos, "blog/two", "Two", chunkSpec{text: "the gopher", vector: []float32{0.7, 0.3, 0}})

	searcher, err := NewSearcher(repos.Chunks, queryEmbedder(near))
	require.NoError(t, err)
	ctx := context.Background()

	for _, mode := range []core.SearchMode{core.SearchModeKeyword, core.SearchModeSemantic, core.SearchModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			q := query("gopher", mode)
			q.Limit = 2
			response, err := searcher.Search(ctx, q)
			require.NoError(t, err)
			assert.Len(t, response.Results, 2)
			assert.Equal(t, 3, response.TotalResults)
			assertDistinctDocuments(t, response.Results)
			assert.Equal(t, "blog/multi", response.Results[0].DocumentId)

			q.Offset = 2
			response, err = searcher.Search(ctx, q)
			require.NoError(t, err)
			assert.Len(t, response.Results, 1)
			assert.Equal(t, 3, response.TotalResults)

			q.Offset = 10
			response, err = searcher.Search(ctx, q)
			require.NoError(t, err)
			assert.Empty(t, response.Results)
		})
	}
}

func TestSearch_SemanticBestChunkExcerpt(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/a", "A",
		chunkSpec{text: "far chunk", vector: []float32{0, 1, 0}},
		chunkSpec{text: "near chunk", vector: []float32{1, 0, 0}},
	)

	searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	response, err := searcher.Search(context.Background(), query("anything", core.SearchModeSemantic))
	require.NoError(t, err)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "near chunk", response.Results[0].Excerpt)
	assert.InDelta(t, 1.0, response.Results[0].Score, 1e-9)
	assert.Equal(t, 1, response.Results[0].Metadata["ordinal"])
	assert.InDelta(t, 0.0, response.Results[0].Metadata["distance"], 1e-9)
}

func TestSearch_HybridMergesDistinctDocuments(t *testing.T) {
	repos := newTestRepositories(t)
	far := []float32{-1, 0, 0}

	// Semantic path finds a..e, keyword path finds d, e and f.
	addDocument(t, repos, "blog/a", "A", chunkSpec{text: "alpha story", vector: []float32{1, 0, 0}})
	addDocument(t, repos, "blog/b", "B", chunkSpec{text: "beta story", vector: []float32{0.9, 0.1, 0}})
	addDocument(t, repos, "blog/c", "C", chunkSpec{text: "gamma story", vector: []float32{0.8, 0.2, 0}})
	addDocument(t, repos, "blog/d", "D", chunkSpec{text: "zebra sighting one", vector: []float32{0.7, 0.3, 0}})
	addDocument(t, repos, "blog/e", "E", chunkSpec{text: "zebra sighting two", vector: []float32{0.6, 0.4, 0}})
	addDocument(t, repos, "blog/f", "F", chunkSpec{text: "zebra sighting six", vector: far})
	addDocument(t, repos, "blog/g", "G", chunkSpec{text: "unrelated", vector: far})

	searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	response, err := searcher.Search(context.Background(), query("zebra", core.SearchModeHybrid))
	require.NoError(t, err)

	assert.Equal(t, 5, response.Metadata["semantic_candidates"])
	assert.Equal(t, 3, response.Metadata["keyword_candidates"])
	require.Len(t, response.Results, 6)
	assert.Equal(t, 6, response.TotalResults)
	assertDistinctDocuments(t, response.Results)

	// Documents on both paths lead; equal scores fall back to document id.
	ids := documentIDs(response.Results)
	assert.Equal(t, []string{"blog/d", "blog/e", "blog/a", "blog/f", "blog/b", "blog/c"}, ids)
	for i := 1; i < len(response.Results); i++ {
		assert.GreaterOrEqual(t, response.Results[i-1].Score, response.Results[i].Score)
	}
	for _, r := range response.Results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
	assert.Equal(t, 0.5, response.Metadata["semantic_weight"])
}

func TestSearch_HybridWeight(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/semantic", "S", chunkSpec{text: "nothing lexical", vector: []float32{1, 0}})
	addDocument(t, repos, "blog/keyword", "K", chunkSpec{text: "zebra", vector: []float32{-1, 0}})

	searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0}), WithSemanticWeight(0.8))
	require.NoError(t, err)

	response, err := searcher.Search(context.Background(), query("zebra", core.SearchModeHybrid))
	require.NoError(t, err)
	require.Len(t, response.Results, 2)
	assert.Equal(t, "blog/semantic", response.Results[0].DocumentId)
	assert.InDelta(t, 0.8, response.Results[0].Score, 1e-9)
	assert.InDelta(t, 0.2, response.Results[1].Score, 1e-9)
}

func TestSearch_HighThresholdReturnsEmpty(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/a", "A", chunkSpec{text: "alpha", vector: []float32{0.6, 0.8, 0}})
	addDocument(t, repos, "blog/b", "B", chunkSpec{text: "beta", vector: []float32{0, 1, 0}})

	searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	q := query("something", core.SearchModeSemantic)
	threshold := 0.99
	q.SimilarityThreshold = &threshold

	response, err := searcher.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, response.Results)
	assert.Equal(t, 0, response.TotalResults)
	assert.Equal(t, 0.99, response.Metadata["threshold_applied"])
}

func TestSearch_DegradesToKeyword(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/a", "A", chunkSpec{text: "gopher facts", vector: []float32{1, 0}})

	embedder := mock.NewMockEmbedder()
	embedder.Err = errors.New("connection refused")
	searcher, err := NewSearcher(repos.Chunks, embedder)
	require.NoError(t, err)

	for _, mode := range []core.SearchMode{core.SearchModeSemantic, core.SearchModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			response, err := searcher.Search(context.Background(), query("gopher", mode))
			require.NoError(t, err)
			require.Len(t, response.Results, 1)
			assert.Equal(t, true, response.Metadata["degraded"])
			assert.Contains(t, response.Metadata["degraded_reason"], "connection refused")
			assert.Equal(t, string(mode), response.Metadata["search_type"])
		})
	}

	t.Run("no keyword results", func(t *testing.T) {
		_, err := searcher.Search(context.Background(), query("python", core.SearchModeHybrid))
		assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
	})
}

func TestSearch_NoPathAvailable(t *testing.T) {
	repos := newTestRepositories(t)
	chunks := &countingChunks{ChunkRepository: repos.Chunks, scanErr: errors.New("scan failed")}
	embedder := mock.NewMockEmbedder()
	embedder.Err = errors.New("connection refused")

	searcher, err := NewSearcher(chunks, embedder)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), query("gopher", core.SearchModeHybrid))
	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
}

func TestSearch_IndexUnavailable(t *testing.T) {
	repos := newTestRepositories(t)
	chunks := &countingChunks{
		ChunkRepository: repos.Chunks,
		scanErr:         errors.New("scan failed"),
		nearestErr:      errors.New("knn failed"),
	}
	searcher, err := NewSearcher(chunks, mock.NewMockEmbedder())
	require.NoError(t, err)

	for _, mode := range []core.SearchMode{core.SearchModeKeyword, core.SearchModeSemantic, core.SearchModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			response, err := searcher.Search(context.Background(), query("gopher", mode))
			assert.ErrorIs(t, err, core.ErrIndexUnavailable)
			assert.Nil(t, response)
		})
	}
}

func TestSearch_Cancelled(t *testing.T) {
	repos := newTestRepositories(t)
	chunks := &countingChunks{ChunkRepository: repos.Chunks}
	embedder := mock.NewMockEmbedder()
	searcher, err := NewSearcher(chunks, embedder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	response, err := searcher.Search(ctx, query("gopher", core.SearchModeHybrid))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, response)
	assert.Equal(t, 0, embedder.CallCount())
	assert.Equal(t, int32(0), chunks.calls.Load())
}

// recordingMonitor records the stages it sees.
type recordingMonitor struct {
	stages []string
}

func (m *recordingMonitor) Start(core.SearchQuery) {}
func (m *recordingMonitor) AfterKeywordSearch([]core.ScoredChunk) {
	m.stages = append(m.stages, "keyword")
}
func (m *recordingMonitor) AfterSemanticSearch([]core.ScoredChunk) {
	m.stages = append(m.stages, "semantic")
}
func (m *recordingMonitor) Degraded(error)                  { m.stages = append(m.stages, "degraded") }
func (m *recordingMonitor) AfterMerge([]*core.SearchResult) { m.stages = append(m.stages, "merge") }
func (m *recordingMonitor) Finish(*core.SearchResponse)     { m.stages = append(m.stages, "finish") }

func TestSearchWithMonitor(t *testing.T) {
	repos := newTestRepositories(t)
	addDocument(t, repos, "blog/a", "A", chunkSpec{text: "gopher", vector: []float32{1, 0}})

	t.Run("hybrid", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0}))
		require.NoError(t, err)

		monitor := &recordingMonitor{}
		_, err = searcher.SearchWithMonitor(context.Background(), query("gopher", core.SearchModeHybrid), monitor)
		require.NoError(t, err)
		assert.Equal(t, []string{"keyword", "semantic", "merge", "finish"}, monitor.stages)
	})

	t.Run("degraded", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.Err = errors.New("down")
		searcher, err := NewSearcher(repos.Chunks, embedder)
		require.NoError(t, err)

		monitor := &recordingMonitor{}
		_, err = searcher.SearchWithMonitor(context.Background(), query("gopher", core.SearchModeSemantic), monitor)
		require.NoError(t, err)
		assert.Equal(t, []string{"keyword", "degraded", "merge", "finish"}, monitor.stages)
	})

	t.Run("log monitor", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, queryEmbedder([]float32{1, 0}))
		require.NoError(t, err)

		_, err = searcher.SearchWithMonitor(context.Background(), query("gopher", core.SearchModeHybrid), NewLogMonitor(nil))
		require.NoError(t, err)
	})
}

func TestExcerpt(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, excerpt(short))

	exact := strings.Repeat("a", ExcerptLength)
	assert.Equal(t, exact, excerpt(exact))

	long := strings.Repeat("é", ExcerptLength+50)
	got := excerpt(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("é", ExcerptLength)+"...", got)
}
