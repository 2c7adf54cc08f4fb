package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
)

// embeddingProcessor embeds stored documents so their vectors land in the cache.
type embeddingProcessor struct {
	batcher *embedding.Batcher
	logger  *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(batcher *embedding.Batcher, logger *slog.Logger) (processor, error) {
	if batcher == nil {
		return nil, fmt.Errorf("batcher required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		batcher: batcher,
		logger:  logger.With("processor", "embeddings"),
	}, nil
}

func (ep *embeddingProcessor) process(ctx context.Context, docs ...*core.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ep.logger.Info("warming embeddings", "documents", len(docs))

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.SearchText()
	}

	if _, err := ep.batcher.Embed(ctx, texts); err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}
	return nil
}
