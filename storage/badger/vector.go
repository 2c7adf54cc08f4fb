package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

// VectorCache implements storage.VectorCache for BadgerDB.
type VectorCache struct {
	backend *Backend
}

var _ storage.VectorCache = (*VectorCache)(nil)

// NewVectorCache creates a new VectorCache.
func NewVectorCache(backend *Backend) *VectorCache {
	return &VectorCache{
		backend: backend,
	}
}

// GetVectors returns the cached vectors for the given keys.
func (c *VectorCache) GetVectors(ctx context.Context, model string, keys ...core.ID) (map[core.ID][]float32, error) {
	results := make(map[core.ID][]float32, len(keys))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range keys {
			item, err := tx.Get(makeVectorKey(model, id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			if err := item.Value(func(val []byte) error {
				v, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				results[id] = v
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PutVectors stores vectors in one transaction.
func (c *VectorCache) PutVectors(ctx context.Context, model string, vectors map[core.ID][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		for id, v := range vectors {
			if err := tx.Set(makeVectorKey(model, id), storage.MarshalVector(v)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountVectors returns the number of vectors cached for a model.
func (c *VectorCache) CountVectors(ctx context.Context, model string) (int, error) {
	return c.backend.countKeys(ctx, makePartialVectorKey(model))
}
