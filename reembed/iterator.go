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


package reembed

import (
	"context"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

const (
	// DefaultBatchSize is the default number of documents handed to each batch
	DefaultBatchSize = 100
)

// DocumentIterator walks every stored document kind by kind in batches.
type DocumentIterator struct {
	source    storage.DocumentSource
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// A batchSize of zero or less means DefaultBatchSize.
func NewDocumentIterator(source storage.DocumentSource, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		source:    source,
		batchSize: batchSize,
	}
}

// Count returns the number of documents across all kinds.
func (it *DocumentIterator) Count(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range core.Kinds {
		docs, err := it.source.ListDocuments(ctx, kind)
		if err != nil {
			return 0, err
		}
		total += len(docs)
	}
	return total, nil
}

// ForEach calls fn with successive batches. A batch never mixes kinds.
// Iteration stops on the first error from fn or when ctx is done.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	for _, kind := range core.Kinds {
		if err := ctx.Err(); err != nil {
			return err
		}

		docs, err := it.source.ListDocuments(ctx, kind)
		if err != nil {
			return err
		}

		for i := 0; i < len(docs); i += it.batchSize {
			end := min(i+it.batchSize, len(docs))
			if err := fn(docs[i:end]); err != nil {
				return err
			}

			// Check context after each batch
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
