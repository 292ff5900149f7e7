package badger

// Key prefixes for different data types
const (
	documentPrefix  = "doc:"
	chunkPrefix     = "chk:"
	embeddingPrefix = "emb:"
	indexMetaKey    = "meta:index"
)

// makeDocumentKey generates a key for a document by ID.
// Format: doc:<category>/<slug>
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// makeDocumentPrefix generates the scan prefix for documents of a category,
// or for all documents when category is empty.
func makeDocumentPrefix(category string) []byte {
	if category == "" {
		return []byte(documentPrefix)
	}
	return []byte(documentPrefix + category + "/")
}

// makeChunkKey generates a key for a chunk by ID.
// Chunk IDs start with their document ID, so chunks of one document
// and of one category are contiguous.
// Format: chk:<category>/<slug>#<ordinal>
func makeChunkKey(id string) []byte {
	return []byte(chunkPrefix + id)
}

// makeDocumentChunksPrefix generates the scan prefix for a document's chunks.
func makeDocumentChunksPrefix(documentID string) []byte {
	return []byte(chunkPrefix + documentID + "#")
}

// makeCategoryChunksPrefix generates the scan prefix for chunks of a category,
// or for all chunks when category is empty.
func makeCategoryChunksPrefix(category string) []byte {
	if category == "" {
		return []byte(chunkPrefix)
	}
	return []byte(chunkPrefix + category + "/")
}

// makeEmbeddingKey generates a cache key namespaced by embedding model.
// Format: emb:<model>:<content hash>
func makeEmbeddingKey(model, hash string) []byte {
	return []byte(embeddingPrefix + model + ":" + hash)
}
