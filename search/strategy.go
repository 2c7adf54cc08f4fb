package search

import (
	"context"
	"fmt"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/lexical"
)

// scorer assigns one query's score to a document.
type scorer interface {
	strategy() core.Strategy
	threshold() float64
	score(doc *core.Document) (float64, []string, error)
}

type lexicalScorer struct {
	index   *lexical.Index
	query   *lexical.Query
	minimum float64
}

func (l *lexicalScorer) strategy() core.Strategy { return core.StrategyLexical }
func (l *lexicalScorer) threshold() float64      { return l.minimum }

func (l *lexicalScorer) score(doc *core.Document) (float64, []string, error) {
	profile, ok := l.index.Lookup(doc.Ref())
	if !ok {
		return 0, nil, fmt.Errorf("no lexical profile for %s", doc.Ref())
	}
	s, matched := l.query.Score(profile)
	return s, matched, nil
}

// embeddingScorer ranks by cosine similarity. Matched terms are still
// reported from the lexical profile for display.
type embeddingScorer struct {
	index   *embedding.Index
	vector  []float32
	terms   *lexicalScorer
	minimum float64
}

func (e *embeddingScorer) strategy() core.Strategy { return core.StrategyEmbedding }
func (e *embeddingScorer) threshold() float64      { return e.minimum }

func (e *embeddingScorer) score(doc *core.Document) (float64, []string, error) {
	s, err := e.index.Similarity(doc.Ref(), e.vector)
	if err != nil {
		return 0, nil, err
	}
	_, matched, _ := e.terms.score(doc)
	return s, matched, nil
}

// selectScorer picks the embedding strategy when the generation has vectors
// and the query embeds cleanly, and the lexical strategy otherwise.
func (s *Searcher) selectScorer(ctx context.Context, idx *Index, text string, query *lexical.Query, monitor SearchMonitor) scorer {
	lex := &lexicalScorer{
		index:   idx.lexical,
		query:   query,
		minimum: s.lexicalThreshold,
	}
	if idx.embedding == nil || s.batcher == nil {
		return lex
	}

	vector, err := s.batcher.EmbedQuery(ctx, text)
	if err == nil && len(vector) != idx.embedding.Dimensions() {
		err = fmt.Errorf("%w: query has %d, index has %d", embedding.ErrDimensionMismatch, len(vector), idx.embedding.Dimensions())
	}
	if err != nil {
		s.logger.Warn("query embedding failed, falling back to lexical scoring", "err", err)
		monitor.Fallback(err)
		return lex
	}

	return &embeddingScorer{
		index:   idx.embedding,
		vector:  vector,
		terms:   lex,
		minimum: s.embeddingThreshold,
	}
}
