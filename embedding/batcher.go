package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

const DefaultBatchSize = 32

// Batcher embeds texts in batches on a worker pool.
// Every vector it returns is unit length.
type Batcher struct {
	embedder  ai.Embedder
	cache     storage.VectorCache
	model     string
	batchSize int
	retry     RetryPolicy
	pool      *ants.Pool
	logger    *slog.Logger
}

type Option func(*Batcher) error

// WithCache reuses and stores vectors under the given model name.
func WithCache(cache storage.VectorCache, model string) Option {
	return func(b *Batcher) error {
		b.cache = cache
		b.model = model
		return nil
	}
}

func WithBatchSize(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			size = 1
		}
		b.batchSize = size
		return nil
	}
}

func WithRetry(policy RetryPolicy) Option {
	return func(b *Batcher) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		b.retry = policy
		return nil
	}
}

// WithWorkers sets the number of batches embedded concurrently.
func WithWorkers(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatcher creates a Batcher. Call Release when done with it.
func NewBatcher(embedder ai.Embedder, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbeddingUnavailable
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Batcher{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		retry:     DefaultRetryPolicy,
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "embedding-batcher")
	return b, nil
}

// Model returns the model name vectors are cached under.
func (b *Batcher) Model() string {
	return b.model
}

// Embed returns one vector per text, in order.
// Cached vectors are reused; fresh ones are written back to the cache.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return b.embed(ctx, texts, true)
}

// Refresh embeds every text regardless of the cache and overwrites cached vectors.
func (b *Batcher) Refresh(ctx context.Context, texts []string) ([][]float32, error) {
	return b.embed(ctx, texts, false)
}

// EmbedQuery embeds a single query text in one attempt.
// Queries are not cached.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := b.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingUnavailable)
	}
	return NormalizeVector(v), nil
}

func (b *Batcher) embed(ctx context.Context, texts []string, readCache bool) ([][]float32, error) {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	var keys []core.ID
	if b.cache != nil {
		keys = make([]core.ID, len(texts))
		for i, text := range texts {
			keys[i] = cacheKey(b.model, text)
		}
		if readCache {
			cached, err := b.cache.GetVectors(ctx, b.model, keys...)
			if err != nil {
				b.logger.Warn("error reading vector cache", "err", err)
			}
			for i, key := range keys {
				if v, ok := cached[key]; ok && len(v) > 0 {
					results[i] = v
				}
			}
		}
	}

	var pending []int
	for i := range results {
		if results[i] == nil {
			pending = append(pending, i)
		}
	}
	b.logger.Debug("embedding texts", "total", len(texts), "pending", len(pending))
	if len(pending) == 0 {
		return results, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for start := 0; start < len(pending); start += b.batchSize {
		end := min(start+b.batchSize, len(pending))
		batch := pending[start:end]

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if err := b.embedBatch(ctx, texts, batch, results); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, errors.Join(errs...))
	}

	if b.cache != nil {
		fresh := make(map[core.ID][]float32, len(pending))
		for _, i := range pending {
			fresh[keys[i]] = results[i]
		}
		if err := b.cache.PutVectors(ctx, b.model, fresh); err != nil {
			b.logger.Warn("error writing vector cache", "err", err)
		}
	}

	return results, nil
}

// embedBatch fills results at the given indices. Each batch writes disjoint slots.
func (b *Batcher) embedBatch(ctx context.Context, texts []string, indices []int, results [][]float32) error {
	batchTexts := make([]string, len(indices))
	for j, i := range indices {
		batchTexts[j] = texts[i]
	}

	var vectors [][]float32
	err := b.retry.Do(ctx, b.logger, func(ctx context.Context) error {
		var err error
		vectors, err = b.embedder.EmbedTexts(ctx, batchTexts)
		return err
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(indices) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(indices), len(vectors))
	}

	for j, i := range indices {
		if len(vectors[j]) == 0 {
			return fmt.Errorf("empty vector for text %d", i)
		}
		results[i] = NormalizeVector(vectors[j])
	}
	return nil
}

// Release stops the worker pool.
func (b *Batcher) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

func cacheKey(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}
