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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers is the number of embedding calls in flight within a batch
	Workers int
}

func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        1,
	}
}

// Reembedder rewrites the vector cache for every stored document.
type Reembedder struct {
	config    *Config
	model     string
	progress  io.Writer
	batcher   *embedding.Batcher
	processor *BatchProcessor
	iterator  *DocumentIterator
}

// NewReembedder creates a reembedder writing vectors for model into cache.
// Call Release when done with it.
func NewReembedder(
	source storage.DocumentSource,
	embedder ai.Embedder,
	cache storage.VectorCache,
	model string,
	config *Config,
	progress io.Writer,
) (*Reembedder, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cache == nil || model == "" {
		return nil, ErrCacheRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	// Each iterator batch is embedded in slices of at most 32 texts
	batcher, err := embedding.NewBatcher(embedder,
		embedding.WithCache(cache, model),
		embedding.WithBatchSize(min(max(config.BatchSize, 1), embedding.DefaultBatchSize)),
		embedding.WithRetry(embedding.RetryPolicy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay}),
		embedding.WithWorkers(config.Workers),
	)
	if err != nil {
		return nil, err
	}

	return &Reembedder{
		config:    config,
		model:     model,
		progress:  progress,
		batcher:   batcher,
		processor: NewBatchProcessor(batcher),
		iterator:  NewDocumentIterator(source, config.BatchSize),
	}, nil
}

// Release stops the embedding workers.
func (r *Reembedder) Release() {
	r.batcher.Release()
}

// Run re-embeds every document and returns how many were processed.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found in database (0 documents)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d documents with %s (batch size: %d)\n",
		total, r.model, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(docs []*core.Document) error {
		if err := r.processor.Process(ctx, docs); err != nil {
			return err
		}
		processed += len(docs)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d documents in %v (%.1f documents/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/elapsed.Seconds())

	return processed, nil
}
