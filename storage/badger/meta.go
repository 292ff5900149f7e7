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

// MetaRepository implements storage.MetaRepository for BadgerDB.
type MetaRepository struct {
	backend *Backend
}

var _ storage.MetaRepository = (*MetaRepository)(nil)

// NewMetaRepository creates a new MetaRepository.
func NewMetaRepository(backend *Backend) *MetaRepository {
	return &MetaRepository{
		backend: backend,
	}
}

// SaveMeta persists the index metadata.
func (r *MetaRepository) SaveMeta(ctx context.Context, meta *core.IndexMeta) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		meta.UpdatedAt = time.Now().UTC()
		if err := tx.Set([]byte(indexMetaKey), storage.MarshalIndexMeta(meta)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadMeta retrieves the index metadata.
// Returns nil, nil if no metadata exists.
func (r *MetaRepository) LoadMeta(ctx context.Context) (*core.IndexMeta, error) {
	var meta *core.IndexMeta
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := getValue(tx, []byte(indexMetaKey), func(val []byte) error {
			var unmarshalErr error
			meta, unmarshalErr = storage.UnmarshalIndexMeta(val)
			return unmarshalErr
		})
		return err
	}, false)

	return meta, err
}
