package badger

import (
	"context"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// Nearest-neighbor search is an exact scan over the stored vectors.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	return &ChunkRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ChunkRepository has no resources to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// ReplaceChunks atomically replaces every chunk of a document.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks ...*core.Chunk) error {
	stale, err := r.backend.keysWithPrefix(makeDocumentChunksPrefix(documentID))
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		keep := make(map[string]bool, len(chunks))
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			keep[string(key)] = true
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		for _, key := range stale {
			if keep[string(key)] {
				continue
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocumentChunks returns the chunks of a document ordered by ordinal.
func (r *ChunkRepository) GetDocumentChunks(ctx context.Context, documentID string) ([]*core.Chunk, error) {
	chunks := []*core.Chunk{}
	err := r.backend.scanPrefix(ctx, makeDocumentChunksPrefix(documentID), func(_, val []byte) error {
		chunk, err := storage.UnmarshalChunk(val)
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys sort lexically, which matches ordinal order only up to the padding width.
	slices.SortFunc(chunks, func(a, b *core.Chunk) int {
		return a.Ordinal - b.Ordinal
	})
	return chunks, nil
}

// ForEachChunk calls fn for every chunk, optionally restricted to a category.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, category string, fn func(*core.Chunk) error) error {
	return r.backend.scanPrefix(ctx, makeCategoryChunksPrefix(category), func(_, val []byte) error {
		chunk, err := storage.UnmarshalChunk(val)
		if err != nil {
			return err
		}
		return fn(chunk)
	})
}

// DeleteChunks removes the chunks of the given documents.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, documentIDs ...string) error {
	var keys [][]byte
	for _, id := range documentIDs {
		docKeys, err := r.backend.keysWithPrefix(makeDocumentChunksPrefix(id))
		if err != nil {
			return err
		}
		keys = append(keys, docKeys...)
	}
	return r.backend.deleteKeys(keys)
}

// CountChunks returns the number of chunks per category.
func (r *ChunkRepository) CountChunks(ctx context.Context) (map[string]int, error) {
	keys, err := r.backend.keysWithPrefix([]byte(chunkPrefix))
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, key := range keys {
		id := strings.TrimPrefix(string(key), chunkPrefix)
		category, _, ok := strings.Cut(id, "/")
		if !ok {
			continue
		}
		counts[category]++
	}
	return counts, nil
}

// FindNearest returns up to k chunks closest to vector, nearest first.
// Ties are ordered by chunk ID.
func (r *ChunkRepository) FindNearest(ctx context.Context, vector []float32, k int, category string) ([]core.Neighbor, error) {
	if k <= 0 || len(vector) == 0 {
		return []core.Neighbor{}, nil
	}

	var neighbors []core.Neighbor
	err := r.backend.scanPrefix(ctx, makeCategoryChunksPrefix(category), func(_, val []byte) error {
		chunk, err := storage.UnmarshalChunk(val)
		if err != nil {
			return err
		}
		// Skip chunks without embeddings or from another embedding model
		if len(chunk.Vector) != len(vector) {
			return nil
		}
		neighbors = append(neighbors, core.Neighbor{
			Chunk:    chunk,
			Distance: core.SquaredEuclidean(vector, chunk.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(neighbors, func(a, b core.Neighbor) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return strings.Compare(a.Chunk.Id, b.Chunk.Id)
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	if neighbors == nil {
		neighbors = []core.Neighbor{}
	}
	return neighbors, nil
}
