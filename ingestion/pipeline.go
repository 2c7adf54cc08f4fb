package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/storage"
)

type Pipeline struct {
	repository    storage.DocumentRepository
	embeddingPool *ants.Pool
	batcher       *embedding.Batcher
	embeddingProc processor
	pending       sync.WaitGroup
	logger        *slog.Logger
}

type Option func(*Pipeline) error

func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithEmbedder enables cache warm-up after each ingest. Use embedding.WithCache
// to say where the vectors go; without a cache the warm-up has no effect.
func WithEmbedder(embedder ai.Embedder, opts ...embedding.Option) Option {
	return func(p *Pipeline) error {
		if embedder == nil {
			return nil
		}
		batcher, err := embedding.NewBatcher(embedder, opts...)
		if err != nil {
			return err
		}
		if p.batcher != nil {
			p.batcher.Release()
		}
		p.batcher = batcher
		return nil
	}
}

func NewPipeline(repository storage.DocumentRepository, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrDocumentRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:    repository,
		embeddingPool: embeddingPool,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processors after options are applied (so they get final config)
	if p.batcher != nil {
		embeddingProc, err := newEmbeddingProcessor(p.batcher, p.logger)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.embeddingProc = embeddingProc
	}

	return p, nil
}

// Ingest validates and stores documents, replacing any with the same kind and id.
// Nothing is stored if any document is invalid.
func (p *Pipeline) Ingest(ctx context.Context, docs ...*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}

	if err := p.repository.AddDocuments(ctx, docs...); err != nil {
		return err
	}
	p.logger.Debug("documents stored", "count", len(docs))

	if p.embeddingProc == nil {
		return nil
	}

	// Submit for async processing
	p.pending.Add(1)
	err := p.embeddingPool.Submit(func() {
		defer p.pending.Done()
		if err := p.embeddingProc.process(context.Background(), docs...); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		p.logger.Error("error submitting embedding warm-up", "err", err)
	}

	return nil
}

// Wait blocks until every submitted warm-up has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
	if p.batcher != nil {
		p.batcher.Release()
	}
}
