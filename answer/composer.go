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


package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/core"
)

const (
	DefaultCacheTTL    = time.Hour
	DefaultMaxLength   = 250
	DefaultContextSize = 3

	// minAnswerLength is the shortest generated answer accepted, after trimming.
	minAnswerLength = 10
)

// Source records where an answer's text came from.
type Source string

const (
	SourceGenerated  Source = "generated"
	SourceCached     Source = "cached"
	SourceTemplate   Source = "template"
	SourceExtractive Source = "extractive"
)

// Answer is the composed response to a query.
type Answer struct {
	Text   string
	Source Source
	// Results are the search results the answer was built from.
	Results []*core.ScoredResult
}

// Composer builds answers from search results.
type Composer struct {
	generator   ai.Generator
	cache       *cache.Cache
	maxLength   int
	contextSize int
	logger      *slog.Logger
}

type Option func(*Composer) error

// WithGenerator enables generated answers. Without one, every answer is a template.
func WithGenerator(generator ai.Generator) Option {
	return func(c *Composer) error {
		c.generator = generator
		return nil
	}
}

// WithCacheTTL sets how long generated answers are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Composer) error {
		c.cache = cache.New(ttl, 2*ttl)
		return nil
	}
}

func WithMaxLength(maxLength int) Option {
	return func(c *Composer) error {
		if maxLength <= 0 {
			return ErrInvalidMaxLength
		}
		c.maxLength = maxLength
		return nil
	}
}

// WithContextSize sets how many top results feed an answer.
func WithContextSize(size int) Option {
	return func(c *Composer) error {
		if size <= 0 {
			return ErrInvalidContextSize
		}
		c.contextSize = size
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

func NewComposer(opts ...Option) (*Composer, error) {
	c := &Composer{
		cache:       cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
		maxLength:   DefaultMaxLength,
		contextSize: DefaultContextSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "composer")
	return c, nil
}

// Compose answers query from results, which are expected in rank order.
// Generation failures never surface as errors; they fall back to templates.
func (c *Composer) Compose(ctx context.Context, query string, results []*core.ScoredResult) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	top := results[:min(len(results), c.contextSize)]
	answer := &Answer{Results: top}

	if len(top) == 0 {
		answer.Text = keywordAnswer(query)
		answer.Source = SourceTemplate
		return answer, nil
	}

	if c.generator != nil {
		if text, source, ok := c.generateAnswer(ctx, query, top); ok {
			answer.Text = text
			answer.Source = source
			return answer, nil
		}
		c.logger.Warn("falling back to template answer", "query", query)
	}

	answer.Text = templateAnswer(top)
	answer.Source = SourceTemplate
	return answer, nil
}

func (c *Composer) generateAnswer(ctx context.Context, query string, results []*core.ScoredResult) (string, Source, bool) {
	passages, err := buildPassages(results)
	if err != nil {
		c.logger.Error("error building answer context", "err", err)
		return "", "", false
	}
	return c.generate(ctx, buildPrompt(query), passages, c.maxLength)
}

// generate returns an accepted response for prompt and passages, from the
// cache when the same pair was answered within the TTL.
func (c *Composer) generate(ctx context.Context, prompt string, passages []string, maxLength int) (string, Source, bool) {
	key := cacheKey(prompt, passages)
	if cached, found := c.cache.Get(key); found {
		c.logger.Debug("returning cached response", "key", key)
		return cached.(string), SourceCached, true
	}

	text, err := c.generator.Generate(ctx, prompt, passages, maxLength)
	if err != nil {
		c.logger.Error("error generating response", "err", err)
		return "", "", false
	}
	if len(strings.TrimSpace(text)) <= minAnswerLength {
		c.logger.Warn("generated response too short", "length", len(strings.TrimSpace(text)))
		return "", "", false
	}

	c.cache.Set(key, text, cache.DefaultExpiration)
	return text, SourceGenerated, true
}

func buildPrompt(query string) string {
	return fmt.Sprintf("User query: %s\n\nPlease provide a helpful and informative response to this safety question. "+
		"Include specific protocols, emergency procedures, and relevant incident information if applicable.", query)
}

// passage is the JSON shape of one result handed to the generator.
type passage struct {
	ID       string            `json:"id"`
	Kind     core.Kind         `json:"kind"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Score    float64           `json:"relevance_score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func buildPassages(results []*core.ScoredResult) ([]string, error) {
	passages := make([]string, 0, len(results))
	for _, r := range results {
		p := passage{
			ID:       r.Document.ID,
			Kind:     r.Document.Kind,
			Title:    r.Document.Title,
			Content:  r.Document.Body,
			Score:    r.Score,
			Metadata: r.Document.Metadata,
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, err
		}
		passages = append(passages, string(data))
	}
	return passages, nil
}

func cacheKey(prompt string, passages []string) string {
	id := core.IDFromContent(prompt + "\x00" + strings.Join(passages, "\x00"))
	return strconv.FormatUint(uint64(id), 16)
}
