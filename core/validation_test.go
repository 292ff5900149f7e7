package core

import (
	"errors"
	"testing"
)

func float64Ptr(v float64) *float64 {
	return &v
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   SearchQuery
		wantErr error
	}{
		{
			name:    "valid default query",
			query:   NewSearchQuery("lancedb"),
			wantErr: nil,
		},
		{
			name:    "valid keyword query at max limit",
			query:   SearchQuery{Text: "go", Mode: SearchModeKeyword, Limit: MaxLimit},
			wantErr: nil,
		},
		{
			name:    "empty text",
			query:   SearchQuery{Text: "", Mode: SearchModeHybrid, Limit: 10},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "whitespace text",
			query:   SearchQuery{Text: "  \t\n", Mode: SearchModeHybrid, Limit: 10},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "zero limit",
			query:   SearchQuery{Text: "go", Mode: SearchModeHybrid, Limit: 0},
			wantErr: ErrLimitOutOfRange,
		},
		{
			name:    "limit above max",
			query:   SearchQuery{Text: "go", Mode: SearchModeHybrid, Limit: MaxLimit + 1},
			wantErr: ErrLimitOutOfRange,
		},
		{
			name:    "negative offset",
			query:   SearchQuery{Text: "go", Mode: SearchModeHybrid, Limit: 10, Offset: -1},
			wantErr: ErrNegativeOffset,
		},
		{
			name:    "threshold above one",
			query:   SearchQuery{Text: "go", Mode: SearchModeSemantic, Limit: 10, SimilarityThreshold: float64Ptr(1.5)},
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "negative threshold",
			query:   SearchQuery{Text: "go", Mode: SearchModeSemantic, Limit: 10, SimilarityThreshold: float64Ptr(-0.1)},
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "unknown mode",
			query:   SearchQuery{Text: "go", Mode: "fuzzy", Limit: 10},
			wantErr: ErrInvalidMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateQuery() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateQuery() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("ValidateQuery() error = %v, should wrap ErrInvalidQuery", err)
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	valid := func() *Document {
		return &Document{
			Id:       "blog/intro",
			Title:    "Intro",
			Category: "blog",
			Slug:     "intro",
			Body:     "Some body text",
		}
	}

	tests := []struct {
		name    string
		mutate  func(d *Document) *Document
		wantErr error
	}{
		{
			name:    "valid document",
			mutate:  func(d *Document) *Document { return d },
			wantErr: nil,
		},
		{
			name:    "nil document",
			mutate:  func(d *Document) *Document { return nil },
			wantErr: ErrDocumentParse,
		},
		{
			name:    "missing title",
			mutate:  func(d *Document) *Document { d.Title = " "; return d },
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "missing category",
			mutate:  func(d *Document) *Document { d.Category = ""; return d },
			wantErr: ErrEmptyCategory,
		},
		{
			name:    "missing slug",
			mutate:  func(d *Document) *Document { d.Slug = ""; return d },
			wantErr: ErrEmptySlug,
		},
		{
			name:   "blank body is left to the chunker",
			mutate: func(d *Document) *Document { d.Body = "\n\n"; return d },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.mutate(valid()))

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, ErrDocumentParse) {
				t.Errorf("ValidateDocument() error = %v, should wrap ErrDocumentParse", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSearchMode(t *testing.T) {
	mode, err := ParseSearchMode(" Keyword ")
	if err != nil || mode != SearchModeKeyword {
		t.Errorf("ParseSearchMode() = %q, %v", mode, err)
	}

	mode, err = ParseSearchMode("")
	if err != nil || mode != SearchModeHybrid {
		t.Errorf("ParseSearchMode(\"\") = %q, %v, want hybrid", mode, err)
	}

	if _, err := ParseSearchMode("vector"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("ParseSearchMode(vector) error = %v, want ErrInvalidMode", err)
	}
}

func TestSearchQueryWithDefaults(t *testing.T) {
	q := SearchQuery{Text: "go"}.WithDefaults()
	if q.Mode != SearchModeHybrid {
		t.Errorf("Mode = %q, want hybrid", q.Mode)
	}
	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.Threshold() != DefaultSimilarityThreshold {
		t.Errorf("Threshold() = %v, want %v", q.Threshold(), DefaultSimilarityThreshold)
	}

	explicitZero := SearchQuery{Text: "go", SimilarityThreshold: float64Ptr(0)}.WithDefaults()
	if explicitZero.Threshold() != 0 {
		t.Errorf("explicit zero threshold replaced by %v", explicitZero.Threshold())
	}
}
