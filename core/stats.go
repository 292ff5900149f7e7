package core

import "time"

// IndexScope selects which part of the corpus an indexing run touches.
// An empty Category means the whole corpus. Slug requires Category.
type IndexScope struct {
	Category string `json:"category,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

// IsFull reports whether the scope covers the whole corpus.
func (s IndexScope) IsFull() bool {
	return s.Category == "" && s.Slug == ""
}

// Contains reports whether a document lies inside the scope.
func (s IndexScope) Contains(category, slug string) bool {
	if s.Category != "" && s.Category != category {
		return false
	}
	if s.Slug != "" && s.Slug != slug {
		return false
	}
	return true
}

func (s IndexScope) String() string {
	switch {
	case s.IsFull():
		return "all"
	case s.Slug == "":
		return s.Category
	default:
		return DocumentID(s.Category, s.Slug)
	}
}

// IndexingStatus summarizes the outcome of an indexing run.
type IndexingStatus string

const (
	IndexingCompleted IndexingStatus = "completed"
	IndexingPartial   IndexingStatus = "partial"
	IndexingFailed    IndexingStatus = "failed"
)

// IndexingResult reports what an indexing run did.
type IndexingResult struct {
	OperationId         string         `json:"operation_id"`
	Scope               IndexScope     `json:"scope"`
	Status              IndexingStatus `json:"status"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         time.Time      `json:"completed_at"`
	DocumentsProcessed  int            `json:"documents_processed"`
	DocumentsSkipped    int            `json:"documents_skipped"`
	DocumentsFailed     int            `json:"documents_failed"`
	DocumentsRemoved    int            `json:"documents_removed"`
	ChunksCreated       int            `json:"chunks_created"`
	EmbeddingsGenerated int            `json:"embeddings_generated"`
	CacheHits           int            `json:"cache_hits"`
	Errors              []string       `json:"errors,omitempty"`
	Warnings            []string       `json:"warnings,omitempty"`
}

// Duration returns the wall time of the run.
func (r *IndexingResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// IndexMeta holds index-wide facts persisted alongside the data.
type IndexMeta struct {
	Dimension      int
	EmbeddingModel string
	LastOperation  string
	UpdatedAt      time.Time
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Documents   int       `json:"documents"`
	Chunks      int       `json:"chunks"`
	LastUpdated time.Time `json:"last_updated"`
}

// IndexStats describes the current content of the index.
type IndexStats struct {
	Categories     map[string]*CategoryStats `json:"categories"`
	TotalDocuments int                       `json:"total_documents"`
	TotalChunks    int                       `json:"total_chunks"`
	Dimension      int                       `json:"vector_dimension"`
	EmbeddingModel string                    `json:"embedding_model,omitempty"`
	Location       string                    `json:"location"`
	LastUpdated    time.Time                 `json:"last_updated"`
}
