package search

import (
	"context"
	"errors"

	"github.com/poiesic/sift/core"
)

// Health states reported by Health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthReport summarizes whether the search paths can serve queries.
type HealthReport struct {
	Status             string `json:"status"`
	IndexAvailable     bool   `json:"index_available"`
	EmbeddingAvailable bool   `json:"embedding_available"`
	SelfTestOK         bool   `json:"self_test_ok"`
	SampleResults      int    `json:"sample_results"`
	Error              string `json:"error,omitempty"`
}

// Health probes the index and the embedder, then runs a one-result semantic
// self-test query. A missing embedder degrades the service; a missing index
// makes it unhealthy.
func (s *Searcher) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{Status: StatusHealthy}

	if _, err := s.chunks.CountChunks(ctx); err != nil {
		report.Status = StatusUnhealthy
		report.Error = err.Error()
		return report
	}
	report.IndexAvailable = true

	threshold := 0.0
	response, err := s.Search(ctx, core.SearchQuery{
		Text:                "test",
		Mode:                core.SearchModeSemantic,
		Limit:               1,
		SimilarityThreshold: &threshold,
	})
	if err != nil {
		report.Error = err.Error()
		if errors.Is(err, core.ErrIndexUnavailable) {
			report.Status = StatusUnhealthy
			report.IndexAvailable = false
			return report
		}
		report.Status = StatusDegraded
		return report
	}

	degraded, _ := response.Metadata["degraded"].(bool)
	report.EmbeddingAvailable = !degraded
	report.SelfTestOK = !degraded
	report.SampleResults = len(response.Results)
	if degraded {
		report.Status = StatusDegraded
		if reason, ok := response.Metadata["degraded_reason"].(string); ok {
			report.Error = reason
		}
	}
	return report
}
