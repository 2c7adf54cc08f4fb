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


// Package config loads engine settings from a TOML file.
//
// Loading starts from defaults, merges the file over them, then applies
// environment overrides. Command-line flags are applied by the caller last.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/answer"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/lexical"
	"github.com/poiesic/safetyrag/reembed"
	"github.com/poiesic/safetyrag/search"
)

// Environment variables consulted after the file is loaded.
const (
	EnvAPIToken      = "SAFETYRAG_API_TOKEN"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvEmbeddingHost = "SAFETYRAG_EMBEDDING_HOST"
	EnvGeneratorHost = "SAFETYRAG_GENERATOR_HOST"
	EnvStoragePath   = "SAFETYRAG_DB"
)

type Config struct {
	Search     SearchConfig     `toml:"search"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	Storage    StorageConfig    `toml:"storage"`
	Corpus     CorpusConfig     `toml:"corpus"`
}

type SearchConfig struct {
	LexicalThreshold   float64 `toml:"lexical_threshold"`   // Minimum lexical score, exclusive
	EmbeddingThreshold float64 `toml:"embedding_threshold"` // Minimum cosine similarity, exclusive
	SnippetLength      int     `toml:"snippet_length"`      // Snippet length in characters
	TopN               int     `toml:"top_n"`               // Default number of results
	Stopwords          bool    `toml:"stopwords"`           // Drop common function words from queries and documents
}

type EmbeddingConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Model      string `toml:"model"`
	APIToken   string `toml:"api_token"`
	BatchSize  int    `toml:"batch_size"`  // Texts per embedding request
	Workers    int    `toml:"workers"`     // Concurrent embedding requests
	MaxRetries int    `toml:"max_retries"` // Attempts per request
	RetryDelay string `toml:"retry_delay"` // e.g. "1s", doubled per attempt
}

type GenerationConfig struct {
	Enabled     bool    `toml:"enabled"`
	Host        string  `toml:"host"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxLength   int     `toml:"max_length"`   // Answer length in tokens
	ContextSize int     `toml:"context_size"` // Top results handed to the generator
	CacheTTL    string  `toml:"cache_ttl"`    // e.g. "1h"
}

type StorageConfig struct {
	Path     string `toml:"path"` // BadgerDB directory
	InMemory bool   `toml:"in_memory"`
}

type CorpusConfig struct {
	Guidebook string `toml:"guidebook"` // Emergency guidebook JSON file
	Incidents string `toml:"incidents"` // Incident reports JSON file
	Watch     bool   `toml:"watch"`     // Rebuild the index when the files change
	Debounce  string `toml:"debounce"`  // e.g. "250ms"
}

func NewDefaultConfig() *Config {
	defaults := ai.DefaultConfig()
	return &Config{
		Search: SearchConfig{
			LexicalThreshold:   lexical.DefaultThreshold,
			EmbeddingThreshold: embedding.DefaultThreshold,
			SnippetLength:      search.DefaultSnippetLength,
			TopN:               search.DefaultTopN,
		},
		Embedding: EmbeddingConfig{
			Host:       defaults.EmbeddingHost,
			Model:      defaults.EmbeddingModel,
			APIToken:   defaults.APIToken,
			BatchSize:  embedding.DefaultBatchSize,
			Workers:    1,
			MaxRetries: embedding.DefaultRetryPolicy.MaxAttempts,
			RetryDelay: embedding.DefaultRetryPolicy.BaseDelay.String(),
		},
		Generation: GenerationConfig{
			Host:        defaults.GeneratorHost,
			Model:       defaults.GeneratorModel,
			Temperature: defaults.Temperature,
			MaxLength:   answer.DefaultMaxLength,
			ContextSize: answer.DefaultContextSize,
			CacheTTL:    answer.DefaultCacheTTL.String(),
		},
		Storage: StorageConfig{
			Path: "./safetyrag_db",
		},
		Corpus: CorpusConfig{
			Debounce: "250ms",
		},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if token := os.Getenv(EnvOpenAIKey); token != "" {
		config.Embedding.APIToken = token
	}
	if token := os.Getenv(EnvAPIToken); token != "" {
		config.Embedding.APIToken = token
	}
	if host := os.Getenv(EnvEmbeddingHost); host != "" {
		config.Embedding.Host = host
	}
	if host := os.Getenv(EnvGeneratorHost); host != "" {
		config.Generation.Host = host
	}
	if path := os.Getenv(EnvStoragePath); path != "" {
		config.Storage.Path = path
	}
}

func (c *Config) Validate() error {
	if c.Search.LexicalThreshold < 0 || c.Search.LexicalThreshold >= 1 {
		return fmt.Errorf("%w: search.lexical_threshold must be in [0, 1)", ErrInvalidConfig)
	}
	if c.Search.EmbeddingThreshold < 0 || c.Search.EmbeddingThreshold >= 1 {
		return fmt.Errorf("%w: search.embedding_threshold must be in [0, 1)", ErrInvalidConfig)
	}
	if c.Search.SnippetLength <= 0 {
		return fmt.Errorf("%w: search.snippet_length must be positive", ErrInvalidConfig)
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("%w: search.top_n must be positive", ErrInvalidConfig)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Embedding.Workers <= 0 {
		return fmt.Errorf("%w: embedding.workers must be positive", ErrInvalidConfig)
	}
	if c.Embedding.MaxRetries <= 0 {
		return fmt.Errorf("%w: embedding.max_retries must be positive", ErrInvalidConfig)
	}
	if _, err := time.ParseDuration(c.Embedding.RetryDelay); err != nil {
		return fmt.Errorf("%w: embedding.retry_delay: %w", ErrInvalidConfig, err)
	}

	if c.Generation.MaxLength <= 0 {
		return fmt.Errorf("%w: generation.max_length must be positive", ErrInvalidConfig)
	}
	if c.Generation.ContextSize <= 0 {
		return fmt.Errorf("%w: generation.context_size must be positive", ErrInvalidConfig)
	}
	if ttl, err := time.ParseDuration(c.Generation.CacheTTL); err != nil || ttl <= 0 {
		return fmt.Errorf("%w: generation.cache_ttl must be a positive duration", ErrInvalidConfig)
	}

	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required unless storage.in_memory is set", ErrInvalidConfig)
	}

	if d, err := time.ParseDuration(c.Corpus.Debounce); err != nil || d <= 0 {
		return fmt.Errorf("%w: corpus.debounce must be a positive duration", ErrInvalidConfig)
	}

	if c.Embedding.Enabled || c.Generation.Enabled {
		if err := c.AIConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// AIConfig returns the settings for an AI provider.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithGeneratorHost(c.Generation.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithGeneratorModel(c.Generation.Model),
		ai.WithAPIToken(c.Embedding.APIToken),
		ai.WithTemperature(c.Generation.Temperature),
	)
}

// RetryPolicy returns the embedding retry settings.
func (c *Config) RetryPolicy() embedding.RetryPolicy {
	return embedding.RetryPolicy{
		MaxAttempts: c.Embedding.MaxRetries,
		BaseDelay:   parseDuration(c.Embedding.RetryDelay, embedding.DefaultRetryPolicy.BaseDelay),
	}
}

// BatcherOptions returns options for every embedding.Batcher the engine creates.
func (c *Config) BatcherOptions() []embedding.Option {
	return []embedding.Option{
		embedding.WithBatchSize(c.Embedding.BatchSize),
		embedding.WithWorkers(c.Embedding.Workers),
		embedding.WithRetry(c.RetryPolicy()),
	}
}

// SearchOptions returns searcher options for the [search] section.
// The embedder is wired separately.
func (c *Config) SearchOptions() []search.Option {
	opts := []search.Option{
		search.WithLexicalThreshold(c.Search.LexicalThreshold),
		search.WithEmbeddingThreshold(c.Search.EmbeddingThreshold),
		search.WithSnippetLength(c.Search.SnippetLength),
	}
	if c.Search.Stopwords {
		opts = append(opts, search.WithTokenizer(lexical.NewStopwordTokenizer(nil)))
	}
	return opts
}

// ComposerOptions returns answer composer options. The generator is wired separately.
func (c *Config) ComposerOptions() []answer.Option {
	return []answer.Option{
		answer.WithMaxLength(c.Generation.MaxLength),
		answer.WithContextSize(c.Generation.ContextSize),
		answer.WithCacheTTL(parseDuration(c.Generation.CacheTTL, answer.DefaultCacheTTL)),
	}
}

// ReembedConfig returns the batch settings for a reembed run.
func (c *Config) ReembedConfig() *reembed.Config {
	cfg := reembed.DefaultConfig()
	cfg.MaxRetries = c.Embedding.MaxRetries
	cfg.RetryDelay = parseDuration(c.Embedding.RetryDelay, cfg.RetryDelay)
	cfg.Workers = c.Embedding.Workers
	return cfg
}

func (c *Config) DebounceInterval() time.Duration {
	return parseDuration(c.Corpus.Debounce, 250*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
