package storage

import (
	"context"

	"github.com/poiesic/sift/core"
)

// VectorSearcher answers k-nearest-neighbor queries.
// Implementations must be thread-safe and support concurrent access.
type VectorSearcher interface {
	// FindNearest returns up to k chunks closest to vector by squared Euclidean
	// distance, nearest first. An empty category searches every category.
	// Chunks without a vector, or with a vector of a different dimension, are ignored.
	FindNearest(ctx context.Context, vector []float32, k int, category string) ([]core.Neighbor, error)
}

// ChunkRepository stores chunks together with their embedding vectors.
type ChunkRepository interface {
	VectorSearcher

	// ReplaceChunks atomically replaces every chunk of a document with the given chunks.
	// Passing no chunks removes the document's chunks.
	ReplaceChunks(ctx context.Context, documentID string, chunks ...*core.Chunk) error

	// GetDocumentChunks returns the chunks of a document ordered by ordinal.
	// Returns an empty slice if the document has no chunks.
	GetDocumentChunks(ctx context.Context, documentID string) ([]*core.Chunk, error)

	// ForEachChunk calls fn for every chunk, optionally restricted to a category.
	// Iteration stops at the first error returned by fn or when ctx is done.
	ForEachChunk(ctx context.Context, category string, fn func(*core.Chunk) error) error

	// DeleteChunks removes the chunks of the given documents.
	DeleteChunks(ctx context.Context, documentIDs ...string) error

	// CountChunks returns the number of chunks per category.
	CountChunks(ctx context.Context) (map[string]int, error)

	// Close releases repository resources.
	Close() error
}

// DocumentRepository stores document metadata and bodies.
type DocumentRepository interface {
	// PutDocuments inserts or replaces documents by Id.
	PutDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// GetDocuments retrieves multiple documents.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error)

	// ListDocuments returns every document, optionally restricted to a category,
	// ordered by Id.
	ListDocuments(ctx context.Context, category string) ([]*core.Document, error)

	// DeleteDocuments removes documents by Id. Missing documents are ignored.
	DeleteDocuments(ctx context.Context, ids ...string) error

	// Close releases repository resources.
	Close() error
}

// EmbeddingCache maps content hashes to embedding vectors.
// Entries are written once and never replaced or evicted.
// Lookups are safe for concurrent use.
type EmbeddingCache interface {
	// GetEmbeddings returns the cached vectors for the given hashes.
	// Hashes without an entry are absent from the result.
	GetEmbeddings(ctx context.Context, hashes ...string) (map[string]*core.EmbeddingVector, error)

	// PutEmbeddings stores vectors whose hash has no entry yet.
	// Returns the number of new entries written.
	PutEmbeddings(ctx context.Context, vectors ...*core.EmbeddingVector) (int, error)
}

// MetaRepository persists index-wide metadata.
type MetaRepository interface {
	// SaveMeta persists the metadata, stamping UpdatedAt.
	SaveMeta(ctx context.Context, meta *core.IndexMeta) error

	// LoadMeta retrieves the metadata.
	// Returns nil, nil if none has been saved.
	LoadMeta(ctx context.Context) (*core.IndexMeta, error)
}
