// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// EmbeddingCache implements storage.EmbeddingCache for BadgerDB.
// Entries are namespaced by embedding model so switching models never
// serves vectors from the previous one.
type EmbeddingCache struct {
	backend *Backend
	model   string
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a cache for vectors produced by model.
func NewEmbeddingCache(backend *Backend, model string) *EmbeddingCache {
	return &EmbeddingCache{
		backend: backend,
		model:   model,
	}
}

// GetEmbeddings returns the cached vectors for the given hashes.
func (c *EmbeddingCache) GetEmbeddings(ctx context.Context, hashes ...string) (map[string]*core.EmbeddingVector, error) {
	result := make(map[string]*core.EmbeddingVector, len(hashes))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, hash := range hashes {
			if _, seen := result[hash]; seen {
				continue
			}
			_, err := getValue(tx, makeEmbeddingKey(c.model, hash), func(val []byte) error {
				v, err := storage.UnmarshalEmbedding(val)
				if err != nil {
					return err
				}
				result[hash] = v
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutEmbeddings stores vectors whose hash has no entry yet.
// Existing entries are left untouched.
func (c *EmbeddingCache) PutEmbeddings(ctx context.Context, vectors ...*core.EmbeddingVector) (int, error) {
	written := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, v := range vectors {
			key := makeEmbeddingKey(c.model, v.ContentHash)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			if v.GeneratedAt.IsZero() {
				v.GeneratedAt = time.Now().UTC()
			}
			v.Model = c.model
			if err := tx.Set(key, storage.MarshalEmbedding(v)); err != nil {
				return err
			}
			written++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return written, nil
}
