package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/poiesic/safetyrag/ai"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/lexical"
	"github.com/poiesic/safetyrag/storage"
)

// DefaultTopN is the result count callers use when none is given.
const DefaultTopN = 5

type Searcher struct {
	source             storage.DocumentSource
	tokenizer          lexical.Tokenizer
	batcher            *embedding.Batcher
	lexicalThreshold   float64
	embeddingThreshold float64
	snippetLength      int
	logger             *slog.Logger

	current    atomic.Pointer[Index]
	buildMu    sync.Mutex
	generation uint64 // Guarded by buildMu
}

type Option func(*Searcher) error

func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTokenizer replaces the default tokenizer for both documents and queries.
func WithTokenizer(tokenizer lexical.Tokenizer) Option {
	return func(s *Searcher) error {
		if tokenizer == nil {
			tokenizer = lexical.DefaultTokenizer
		}
		s.tokenizer = tokenizer
		return nil
	}
}

// WithEmbedder enables the embedding strategy. A nil embedder leaves the
// searcher lexical only.
func WithEmbedder(embedder ai.Embedder, opts ...embedding.Option) Option {
	return func(s *Searcher) error {
		if embedder == nil {
			return nil
		}
		batcher, err := embedding.NewBatcher(embedder, opts...)
		if err != nil {
			return err
		}
		if s.batcher != nil {
			s.batcher.Release()
		}
		s.batcher = batcher
		return nil
	}
}

func WithLexicalThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold < 0 || math.IsNaN(threshold) {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		s.lexicalThreshold = threshold
		return nil
	}
}

func WithEmbeddingThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold < 0 || math.IsNaN(threshold) {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		s.embeddingThreshold = threshold
		return nil
	}
}

// WithSnippetLength sets the maximum snippet length in runes.
func WithSnippetLength(length int) Option {
	return func(s *Searcher) error {
		if length < 1 {
			length = DefaultSnippetLength
		}
		s.snippetLength = length
		return nil
	}
}

func NewSearcher(source storage.DocumentSource, opts ...Option) (*Searcher, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}

	s := &Searcher{
		source:             source,
		tokenizer:          lexical.DefaultTokenizer,
		lexicalThreshold:   lexical.DefaultThreshold,
		embeddingThreshold: embedding.DefaultThreshold,
		snippetLength:      DefaultSnippetLength,
		logger:             slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Close releases the embedding worker pool.
func (s *Searcher) Close() error {
	if s.batcher != nil {
		s.batcher.Release()
	}
	return nil
}

// Rebuild reloads the whole corpus and publishes a new index generation.
// Invalid documents are skipped. If the lexical index cannot be built the
// previous generation stays in place. If embedding fails the new generation
// is lexical only.
func (s *Searcher) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *Searcher) rebuildLocked(ctx context.Context) error {
	var docs []*core.Document
	for _, kind := range core.Kinds {
		listed, err := s.source.ListDocuments(ctx, kind)
		if err != nil {
			s.logger.Error("error listing documents", "kind", kind, "err", err)
			return fmt.Errorf("listing %s documents: %w", kind, err)
		}
		for _, doc := range listed {
			if err := core.ValidateDocument(doc); err != nil {
				s.logger.Warn("skipping invalid document", "err", err)
				continue
			}
			if doc.Kind != kind {
				s.logger.Warn("skipping document listed under the wrong kind", "ref", doc.Ref(), "listed", kind)
				continue
			}
			docs = append(docs, doc)
		}
	}

	lex, err := lexical.Build(docs, s.tokenizer)
	if err != nil {
		s.logger.Error("error building lexical index, keeping previous generation", "err", err)
		return err
	}

	fingerprint := fingerprintDocuments(docs)
	emb := s.buildEmbeddings(ctx, docs, fingerprint)

	s.generation++
	idx := newIndex(s.generation, docs, lex, emb, fingerprint)
	s.current.Store(idx)

	s.logger.Info("index built",
		"generation", idx.generation,
		"documents", len(docs),
		"embeddings", idx.HasEmbeddings())
	return nil
}

func (s *Searcher) buildEmbeddings(ctx context.Context, docs []*core.Document, fingerprint core.ID) *embedding.Index {
	if s.batcher == nil || len(docs) == 0 {
		return nil
	}

	// Unchanged corpus, reuse the vectors
	if prev := s.current.Load(); prev != nil && prev.embedding != nil && prev.fingerprint == fingerprint {
		return prev.embedding
	}

	emb, err := embedding.Build(ctx, docs, s.batcher)
	if err != nil {
		s.logger.Warn("embedding index unavailable, using lexical scoring", "err", err)
		return nil
	}
	return emb
}

// ensureIndex returns the current generation, building the first one on demand.
func (s *Searcher) ensureIndex(ctx context.Context) (*Index, error) {
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}
	if err := s.rebuildLocked(ctx); err != nil {
		return nil, err
	}
	return s.current.Load(), nil
}

// Generation returns the number of the published index, or 0 before the first build.
func (s *Searcher) Generation() uint64 {
	if idx := s.current.Load(); idx != nil {
		return idx.generation
	}
	return 0
}

// Stats describes the published index, building it first if necessary.
func (s *Searcher) Stats(ctx context.Context) (Stats, error) {
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return Stats{}, err
	}
	return idx.stats(), nil
}

// Get returns a document by kind and id.
func (s *Searcher) Get(ctx context.Context, kind core.Kind, id string) (*core.Document, error) {
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	ref := core.Ref{Kind: kind, ID: id}
	doc, ok := idx.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, ref)
	}
	return doc, nil
}

// Search returns up to topN documents of any kind ranked against query.
func (s *Searcher) Search(ctx context.Context, query string, topN int) ([]*core.ScoredResult, error) {
	return s.SearchWithMonitor(ctx, query, topN, nil)
}

func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, topN int, monitor SearchMonitor) ([]*core.ScoredResult, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}

	return s.query(ctx, idx, query, idx.docs, topN, nil, monitor)
}

// query scores candidates against text with one strategy.
func (s *Searcher) query(ctx context.Context, idx *Index, text string, candidates []*core.Document, topN int, exclude func(*core.Document) bool, monitor SearchMonitor) ([]*core.ScoredResult, error) {
	tokens := s.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		results := []*core.ScoredResult{}
		monitor.Finish(results)
		return results, nil
	}

	sc := s.selectScorer(ctx, idx, text, lexical.NewQuery(tokens), monitor)
	monitor.StrategySelected(sc.strategy())

	results, err := s.rank(ctx, sc, candidates, topN, exclude, monitor)
	if err != nil {
		return nil, err
	}
	monitor.Finish(results)
	s.logger.Debug("query ranked", "strategy", sc.strategy(), "candidates", len(candidates), "results", len(results))
	return results, nil
}

// rank keeps candidates scoring strictly above the threshold, ordered by
// descending score with ties in candidate order.
func (s *Searcher) rank(ctx context.Context, sc scorer, candidates []*core.Document, topN int, exclude func(*core.Document) bool, monitor SearchMonitor) ([]*core.ScoredResult, error) {
	results := make([]*core.ScoredResult, 0)
	for _, doc := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if exclude != nil && exclude(doc) {
			continue
		}

		score, matched, err := safeScore(sc, doc)
		if err != nil {
			scoringErr := &ScoringError{Ref: doc.Ref(), Err: err}
			s.logger.Warn("skipping document that failed to score", "ref", doc.Ref(), "err", err)
			monitor.ScoringFailed(scoringErr)
			continue
		}
		if !(score > sc.threshold()) {
			continue
		}

		results = append(results, &core.ScoredResult{
			Document:     doc,
			Score:        score,
			MatchedTerms: matched,
			Strategy:     sc.strategy(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topN {
		results = results[:topN]
	}

	for _, result := range results {
		result.Snippet = snippet(result.Document, s.snippetLength)
		monitor.Hit(result)
	}
	return results, nil
}

func safeScore(sc scorer, doc *core.Document) (score float64, matched []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, matched, err = 0, nil, fmt.Errorf("%w: %v", ErrScoringPanic, r)
		}
	}()

	score, matched, err = sc.score(doc)
	if err == nil && math.IsNaN(score) {
		err = fmt.Errorf("score is NaN")
	}
	return score, matched, err
}
