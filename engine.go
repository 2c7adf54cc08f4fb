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


package safetyrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/ai/openai"
	"github.com/poiesic/safetyrag/answer"
	"github.com/poiesic/safetyrag/corpus"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/ingestion"
	"github.com/poiesic/safetyrag/reembed"
	"github.com/poiesic/safetyrag/search"
	"github.com/poiesic/safetyrag/storage"
	"github.com/poiesic/safetyrag/storage/badger"
)

type Engine struct {
	repos       *badger.Repositories
	provider    ai.AIProvider
	embeddings  bool
	generation  bool
	batcherOpts []embedding.Option
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	inMemory    bool
	embeddings  bool
	generation  bool
	batcherOpts []embedding.Option
	logger      *slog.Logger
}

// WithAIConfig connects to OpenAI-compatible services with cfg.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses an existing provider. The engine closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithoutEmbeddings keeps searches lexical even when a provider is configured.
func WithoutEmbeddings() Option {
	return func(o *engineOptions) {
		o.embeddings = false
	}
}

// WithoutGeneration makes every answer a template even when a provider is configured.
func WithoutGeneration() Option {
	return func(o *engineOptions) {
		o.generation = false
	}
}

// WithBatcherOptions applies to every embedding batcher the engine creates.
func WithBatcherOptions(opts ...embedding.Option) Option {
	return func(o *engineOptions) {
		o.batcherOpts = append(o.batcherOpts, opts...)
	}
}

// WithInMemory keeps the store in memory. The path is ignored.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens or creates the store at filePath. Without WithAIConfig or
// WithProvider the engine is lexical only and answers from templates.
func Open(filePath string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		embeddings: true,
		generation: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	repos, err := badger.OpenRepositories(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil && options.aiConfig != nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	return &Engine{
		repos:       repos,
		provider:    provider,
		embeddings:  options.embeddings,
		generation:  options.generation,
		batcherOpts: options.batcherOpts,
		logger:      options.logger.With("component", "engine"),
	}, nil
}

func (e *Engine) Close() error {
	// Close AI provider first
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Documents() storage.DocumentRepository {
	return e.repos.Documents
}

func (e *Engine) Standards() storage.StandardsRepository {
	return e.repos.Standards
}

func (e *Engine) VectorCache() storage.VectorCache {
	return e.repos.Vectors
}

// Provider returns the AI provider, or nil when none is configured.
func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

// embedder returns the embedder and its batcher options, or nil when embeddings are off.
func (e *Engine) embedder() (ai.Embedder, []embedding.Option) {
	if e.provider == nil || !e.embeddings {
		return nil, nil
	}
	opts := append([]embedding.Option{
		embedding.WithCache(e.repos.Vectors, e.provider.EmbeddingModel()),
		embedding.WithLogger(e.logger),
	}, e.batcherOpts...)
	return e.provider.Embedder(), opts
}

// NewSearcher creates a searcher over the stored documents.
// Options given here are applied after the engine's own.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return e.NewSearcherOver(e.repos.Documents, opts...)
}

// NewSearcherOver creates a searcher over another document source, such as
// corpus files held in memory. Vectors still go to the engine's cache.
func (e *Engine) NewSearcherOver(source storage.DocumentSource, opts ...search.Option) (*search.Searcher, error) {
	all := []search.Option{search.WithLogger(e.logger)}
	if embedder, batcherOpts := e.embedder(); embedder != nil {
		all = append(all, search.WithEmbedder(embedder, batcherOpts...))
	}
	return search.NewSearcher(source, append(all, opts...)...)
}

func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	all := []ingestion.Option{ingestion.WithLogger(e.logger)}
	if embedder, batcherOpts := e.embedder(); embedder != nil {
		all = append(all, ingestion.WithEmbedder(embedder, batcherOpts...))
	}
	return ingestion.NewPipeline(e.repos.Documents, append(all, opts...)...)
}

func (e *Engine) NewComposer(opts ...answer.Option) (*answer.Composer, error) {
	all := []answer.Option{answer.WithLogger(e.logger)}
	if e.provider != nil && e.generation {
		all = append(all, answer.WithGenerator(e.provider.Generator()))
	}
	return answer.NewComposer(append(all, opts...)...)
}

// NewReembedder creates a reembedder for the provider's embedding model.
// Returns ErrNoProvider when embeddings are not configured.
func (e *Engine) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	embedder, _ := e.embedder()
	if embedder == nil {
		return nil, ErrNoProvider
	}
	return reembed.NewReembedder(e.repos.Documents, embedder, e.repos.Vectors,
		e.provider.EmbeddingModel(), config, progress)
}

// Import stores a loaded corpus and its industry standards, then waits for
// embedding warm-up to finish.
func (e *Engine) Import(ctx context.Context, static *corpus.Static) error {
	pipeline, err := e.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Ingest(ctx, static.Documents...); err != nil {
		return fmt.Errorf("failed to import documents: %w", err)
	}

	if static.Standards != nil {
		if err := e.repos.Standards.SaveStandards(ctx, static.Standards); err != nil {
			return fmt.Errorf("failed to save standards: %w", err)
		}
	}

	pipeline.Wait()
	e.logger.Info("imported corpus", "documents", len(static.Documents))
	return nil
}
