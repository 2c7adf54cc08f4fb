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
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	seq, err := backend.GetSequence(documentSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the insertion-order sequence.
func (r *DocumentRepository) Close() error {
	return r.seq.Release()
}

// AddDocuments upserts documents in one transaction.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) error {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			key := makeDocumentKey(doc.Ref())

			// Replacing a document keeps its position in the insertion order
			_, seq, err := r.readDocument(tx, key)
			if err != nil {
				return err
			}
			if seq == 0 {
				if seq, err = r.nextSeq(); err != nil {
					return err
				}
				if err := tx.Set(makeOrderKey(doc.Kind, seq), []byte(doc.ID)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalDocument(doc, seq)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// nextSeq returns the next non-zero sequence value.
func (r *DocumentRepository) nextSeq() (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return r.seq.Next()
	}
	return next, nil
}

// GetDocument retrieves a single document.
func (r *DocumentRepository) GetDocument(ctx context.Context, ref core.Ref) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, _, err = r.readDocument(tx, makeDocumentKey(ref))
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
		}
		return nil
	}, false)
	return result, err
}

// DeleteDocuments removes documents and their order entries.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, refs ...core.Ref) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, ref := range refs {
			key := makeDocumentKey(ref)

			doc, seq, err := r.readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
			}

			if err := tx.Delete(makeOrderKey(ref.Kind, seq)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListDocuments returns a kind's documents in insertion order.
func (r *DocumentRepository) ListDocuments(ctx context.Context, kind core.Kind) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.forEachKey(tx, makePartialOrderKey(kind), func(item *badger.Item) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id string
			if err := item.Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			doc, _, err := r.readDocument(tx, makeDocumentKey(core.Ref{Kind: kind, ID: id}))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
			return nil
		})
	}, false)
	return results, err
}

// CountDocuments returns the number of stored documents of a kind.
func (r *DocumentRepository) CountDocuments(ctx context.Context, kind core.Kind) (int, error) {
	return r.backend.countKeys(ctx, makePartialOrderKey(kind))
}

// readDocument returns nil, 0, nil when the key is absent.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, uint64, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	var doc *core.Document
	var seq uint64
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, seq, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, seq, err
}
