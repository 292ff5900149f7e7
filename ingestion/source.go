package ingestion

import (
	"context"

	"github.com/poiesic/sift/core"
)

// Source supplies documents to a pipeline.
type Source interface {
	// Discover lists the documents that currently exist inside scope.
	Discover(ctx context.Context, scope core.IndexScope) ([]core.DocumentRef, error)

	// Load reads one document. Deliberately excluded documents return an
	// error wrapping core.ErrDocumentExcluded; malformed ones wrap
	// core.ErrDocumentParse.
	Load(ctx context.Context, ref core.DocumentRef) (*core.Document, error)
}
