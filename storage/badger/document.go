package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DocumentRepository has no resources to release.
func (r *DocumentRepository) Close() error {
	return nil
}

// PutDocuments inserts or replaces documents by ID.
func (r *DocumentRepository) PutDocuments(ctx context.Context, docs ...*core.Document) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListDocuments returns every document, optionally restricted to a category.
func (r *DocumentRepository) ListDocuments(ctx context.Context, category string) ([]*core.Document, error) {
	docs := []*core.Document{}
	err := r.backend.scanPrefix(ctx, makeDocumentPrefix(category), func(_, val []byte) error {
		doc, err := storage.UnmarshalDocument(val)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocuments removes documents by ID.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...string) error {
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = makeDocumentKey(id)
	}
	return r.backend.deleteKeys(keys)
}

// readDocument returns nil, nil if the document does not exist.
func readDocument(tx *badger.Txn, id string) (*core.Document, error) {
	var doc *core.Document
	_, err := getValue(tx, makeDocumentKey(id), func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
