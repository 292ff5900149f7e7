package core

import (
	"fmt"
	"strings"
	"time"
)

// SearchMode selects the retrieval path(s) for a query.
type SearchMode string

const (
	SearchModeSemantic SearchMode = "semantic"
	SearchModeKeyword  SearchMode = "keyword"
	SearchModeHybrid   SearchMode = "hybrid"
)

// ParseSearchMode converts a user supplied mode name.
func ParseSearchMode(s string) (SearchMode, error) {
	switch mode := SearchMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case SearchModeSemantic, SearchModeKeyword, SearchModeHybrid:
		return mode, nil
	case "":
		return SearchModeHybrid, nil
	default:
		return "", fmt.Errorf("%w: %w: %q", ErrInvalidQuery, ErrInvalidMode, s)
	}
}

const (
	DefaultLimit               = 10
	MaxLimit                   = 100
	DefaultSimilarityThreshold = 0.5
)

// SearchQuery is a single search request.
type SearchQuery struct {
	Text                string     `json:"query"`
	Mode                SearchMode `json:"search_type"`
	Limit               int        `json:"limit"`
	Offset              int        `json:"offset,omitempty"`
	Category            string     `json:"category_filter,omitempty"`
	SimilarityThreshold *float64   `json:"similarity_threshold,omitempty"`
	CaseSensitive       bool       `json:"case_sensitive"`
}

// NewSearchQuery creates a query with the default mode, limit and threshold.
func NewSearchQuery(text string) SearchQuery {
	threshold := DefaultSimilarityThreshold
	return SearchQuery{
		Text:                text,
		Mode:                SearchModeHybrid,
		Limit:               DefaultLimit,
		SimilarityThreshold: &threshold,
	}
}

// Threshold returns the similarity threshold, applying the default when unset.
func (q SearchQuery) Threshold() float64 {
	if q.SimilarityThreshold == nil {
		return DefaultSimilarityThreshold
	}
	return *q.SimilarityThreshold
}

// WithDefaults fills zero-valued fields with their defaults.
func (q SearchQuery) WithDefaults() SearchQuery {
	if q.Mode == "" {
		q.Mode = SearchModeHybrid
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SimilarityThreshold == nil {
		threshold := DefaultSimilarityThreshold
		q.SimilarityThreshold = &threshold
	}
	return q
}

// ScoredChunk is a chunk ranked by one retrieval path.
// Scores from different paths are not comparable.
type ScoredChunk struct {
	Chunk       *Chunk
	Score       float64
	Distance    float64 // Semantic path only
	TermMatches int     // Keyword path only
}

// SearchResult is the document level projection of the best chunk.
type SearchResult struct {
	DocumentId  string         `json:"document_id"`
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	Slug        string         `json:"slug"`
	Excerpt     string         `json:"excerpt"`
	Content     string         `json:"content"`
	Score       float64        `json:"score"`
	URL         string         `json:"url"`
	PublishDate time.Time      `json:"publish_date"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

// SearchResponse is returned for every successful query.
// A query that matches nothing has an empty Results slice.
type SearchResponse struct {
	Query        SearchQuery     `json:"query"`
	Results      []*SearchResult `json:"results"`
	TotalResults int             `json:"total_results"`
	SearchTimeMs float64         `json:"search_time_ms"`
	Metadata     map[string]any  `json:"metadata"`
}
