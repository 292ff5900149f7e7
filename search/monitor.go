package search

import (
	"log/slog"

	"github.com/poiesic/sift/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Keyword and semantic callbacks may arrive from different goroutines.
type SearchMonitor interface {
	Start(query core.SearchQuery)
	AfterKeywordSearch(hits []core.ScoredChunk)
	AfterSemanticSearch(hits []core.ScoredChunk)
	Degraded(reason error)
	AfterMerge(results []*core.SearchResult)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.SearchQuery)                 {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.ScoredChunk)  {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ScoredChunk) {}
func (n *noopMonitor) Degraded(_ error)                         {}
func (n *noopMonitor) AfterMerge(_ []*core.SearchResult)        {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)            {}

// LogMonitor writes every search stage to a logger.
type LogMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor that logs at info level.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search-monitor")}
}

func (m *LogMonitor) Start(query core.SearchQuery) {
	m.logger.Info("search started", "query", query.Text, "mode", query.Mode,
		"limit", query.Limit, "offset", query.Offset, "category", query.Category,
		"threshold", query.Threshold())
}

func (m *LogMonitor) AfterKeywordSearch(hits []core.ScoredChunk) {
	m.logHits("keyword", hits)
}

func (m *LogMonitor) AfterSemanticSearch(hits []core.ScoredChunk) {
	m.logHits("semantic", hits)
}

func (m *LogMonitor) logHits(path string, hits []core.ScoredChunk) {
	m.logger.Info("path complete", "path", path, "hits", len(hits))
	for i, hit := range hits {
		if i == 5 {
			break
		}
		m.logger.Info("hit", "path", path, "rank", i+1, "chunk", hit.Chunk.Id,
			"score", hit.Score, "distance", hit.Distance, "term_matches", hit.TermMatches)
	}
}

func (m *LogMonitor) Degraded(reason error) {
	m.logger.Warn("falling back to keyword search", "reason", reason)
}

func (m *LogMonitor) AfterMerge(results []*core.SearchResult) {
	m.logger.Info("merged", "documents", len(results))
}

func (m *LogMonitor) Finish(response *core.SearchResponse) {
	m.logger.Info("search finished", "returned", len(response.Results),
		"total", response.TotalResults, "ms", response.SearchTimeMs)
}
