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
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

type StandardsRepository struct {
	backend *Backend
}

var _ storage.StandardsRepository = (*StandardsRepository)(nil)

// NewStandardsRepository creates a new StandardsRepository.
func NewStandardsRepository(backend *Backend) *StandardsRepository {
	return &StandardsRepository{
		backend: backend,
	}
}

func (r *StandardsRepository) SaveStandards(ctx context.Context, standards *core.Standards) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		standards.UpdatedAt = time.Now().UTC()
		if err := tx.Set([]byte(standardsRecordKey), storage.MarshalStandards(standards)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Returns nil, nil if no standards exist.
func (r *StandardsRepository) LoadStandards(ctx context.Context) (*core.Standards, error) {
	var standards *core.Standards
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(standardsRecordKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			standards, unmarshalErr = storage.UnmarshalStandards(val)
			return unmarshalErr
		})
	}, false)

	return standards, err
}
