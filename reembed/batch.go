package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
)

// BatchProcessor refreshes the cached vectors for one batch of documents.
type BatchProcessor struct {
	batcher *embedding.Batcher
}

func NewBatchProcessor(batcher *embedding.Batcher) *BatchProcessor {
	return &BatchProcessor{
		batcher: batcher,
	}
}

// Process embeds the documents' search text, ignoring any cached vectors,
// and overwrites the cache with the result.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.SearchText()
	}

	if _, err := bp.batcher.Refresh(ctx, texts); err != nil {
		return fmt.Errorf("failed to embed batch starting at %s: %w", docs[0].Ref(), err)
	}
	return nil
}
