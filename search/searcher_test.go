package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/safetyrag/ai/mock"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/corpus"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protocol(id, title, body string) *core.Document {
	return &core.Document{ID: id, Kind: core.KindProtocol, Title: title, Body: body}
}

func incident(id, title, description string) *core.Document {
	return &core.Document{
		ID:       id,
		Kind:     core.KindIncident,
		Title:    title,
		Body:     description,
		Metadata: map[string]string{core.MetaDescription: description, core.MetaHazardType: "chemical"},
	}
}

func exampleCorpus() *corpus.MemorySource {
	return corpus.NewMemorySource(
		protocol("1", "Flammable Liquids", "flammable liquids ignite flame"),
		incident("INC-1", "Diesel Fuel Spill", "diesel fuel spilled"),
	)
}

// fastRetry keeps failing embedders from sleeping through backoff.
var fastRetry = embedding.WithRetry(embedding.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond})

func newTestSearcher(t *testing.T, source *corpus.MemorySource, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(source, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ids(results []*core.ScoredResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = string(r.Kind()) + "/" + r.Document.ID
	}
	return out
}

type recordingMonitor struct {
	mu        sync.Mutex
	strategy  core.Strategy
	fallbacks []error
	failures  []*ScoringError
	hits      int
	finished  bool
}

func (m *recordingMonitor) Start(string) {}
func (m *recordingMonitor) StrategySelected(s core.Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = s
}
func (m *recordingMonitor) Fallback(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, err)
}
func (m *recordingMonitor) ScoringFailed(err *ScoringError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}
func (m *recordingMonitor) Hit(*core.ScoredResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}
func (m *recordingMonitor) Finish([]*core.ScoredResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
}

func TestNewSearcher(t *testing.T) {
	source := exampleCorpus()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(source)
		require.NoError(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, uint64(0), s.Generation(), "index is built lazily")
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(source, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with custom logger", func(t *testing.T) {
		s, err := NewSearcher(source, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrSourceRequired, err)
	})

	t.Run("negative threshold", func(t *testing.T) {
		_, err := NewSearcher(source, WithLexicalThreshold(-0.1))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
		_, err = NewSearcher(source, WithEmbeddingThreshold(-1))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})
}

func TestSearch_FlameHazard(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())

	results, err := s.Search(context.Background(), "flame hazard", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "1", r.Document.ID)
	assert.Equal(t, core.KindProtocol, r.Kind())
	assert.Equal(t, "Flammable Liquids", r.Document.Title)
	assert.InDelta(t, 0.5, r.Score, 1e-9)
	assert.Equal(t, []string{"flame"}, r.MatchedTerms)
	assert.Equal(t, core.StrategyLexical, r.Strategy)
	assert.Equal(t, "flammable liquids ignite flame", r.Snippet)
}

func TestSearch_NoOverlap(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())

	results, err := s.Search(context.Background(), "unrelated term", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())

	for _, q := range []string{"", "   ", "?!--"} {
		results, err := s.Search(context.Background(), q, 5)
		require.NoError(t, err, q)
		assert.Empty(t, results, q)
	}
}

func TestSearch_InvalidTopN(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())

	for _, n := range []int{0, -3} {
		_, err := s.Search(context.Background(), "flame", n)
		assert.ErrorIs(t, err, ErrInvalidTopN)
		_, err = s.FindSimilar(context.Background(), "flame", n)
		assert.ErrorIs(t, err, ErrInvalidTopN)
	}
}

func TestSearch_ScoreUsesQueryMultiplicity(t *testing.T) {
	s := newTestSearcher(t, corpus.NewMemorySource(
		protocol("1", "Gas", "gas leak response"),
	))

	// gas appears twice of four tokens; valve is unmatched
	results, err := s.Search(context.Background(), "gas gas leak valve", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
	assert.Equal(t, []string{"gas", "leak"}, results[0].MatchedTerms)
}

func TestSearch_ThresholdIsStrict(t *testing.T) {
	s := newTestSearcher(t, corpus.NewMemorySource(
		protocol("1", "Fire", "fire"),
	))

	// one of ten tokens matches: 0.1 is not above the threshold
	results, err := s.Search(context.Background(), "fire a b c d e f g h i", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.Search(context.Background(), "fire a b c d e f g h", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_TiesKeepCorpusOrder(t *testing.T) {
	s := newTestSearcher(t, corpus.NewMemorySource(
		incident("INC-1", "Spill", "acid spill in lab"),
		protocol("P-2", "Spill kit", "spill containment"),
		protocol("P-1", "Spill response", "spill cleanup"),
		incident("INC-0", "Spill", "oil spill on road"),
	))

	results, err := s.Search(context.Background(), "spill", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"protocol/P-2", "protocol/P-1", "incident/INC-1", "incident/INC-0"}, ids(results))

	for i := 0; i < 5; i++ {
		again, err := s.Search(context.Background(), "spill", 10)
		require.NoError(t, err)
		assert.Equal(t, ids(results), ids(again))
	}
}

func TestSearch_SortedAndTruncated(t *testing.T) {
	s := newTestSearcher(t, corpus.NewMemorySource(
		protocol("a", "Chemical", "chemical"),
		protocol("b", "Chemical spill", "chemical spill"),
		protocol("c", "Chemical spill fire", "chemical spill fire"),
		protocol("d", "Nothing", "unrelated"),
	))

	results, err := s.Search(context.Background(), "chemical spill fire", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Document.ID)
	assert.Equal(t, "b", results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_SnippetTruncated(t *testing.T) {
	long := strings.Repeat("é", 250)
	s := newTestSearcher(t, corpus.NewMemorySource(
		protocol("1", "Accents", "accent "+long),
	))

	results, err := s.Search(context.Background(), "accent", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "accent "+strings.Repeat("é", 193)+"...", results[0].Snippet)
}

func TestSearch_EmbeddingStrategy(t *testing.T) {
	source := corpus.NewMemorySource(
		protocol("1", "Chemical spill", "contain the spill and ventilate"),
		protocol("2", "Fire", "evacuate and call emergency services"),
	)
	s := newTestSearcher(t, source, WithEmbedder(mock.NewMockEmbedder(), fastRetry))
	monitor := &recordingMonitor{}

	results, err := s.SearchWithMonitor(context.Background(), "chemical spill", 5, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, core.StrategyEmbedding, monitor.strategy)
	assert.True(t, monitor.finished)
	assert.Empty(t, monitor.fallbacks)

	assert.Equal(t, "1", results[0].Document.ID)
	for _, r := range results {
		assert.Equal(t, core.StrategyEmbedding, r.Strategy)
		assert.Greater(t, r.Score, embedding.DefaultThreshold)
	}
	assert.Equal(t, []string{"chemical", "spill"}, results[0].MatchedTerms)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Embeddings)
	assert.Equal(t, mock.DefaultDimensions, stats.Dimensions)
}

func TestSearch_FallbackMatchesLexical(t *testing.T) {
	docs := []*core.Document{
		protocol("1", "Chemical spill", "contain the spill and ventilate"),
		protocol("2", "Fire", "evacuate and call emergency services"),
		incident("INC-1", "Acid spill", "drum ruptured and spilled acid"),
	}
	lexicalOnly := newTestSearcher(t, corpus.NewMemorySource(docs...))
	unavailable := newTestSearcher(t, corpus.NewMemorySource(docs...),
		WithEmbedder(mock.NewUnavailableEmbedder(errors.New("connection refused")), fastRetry))

	for _, q := range []string{"chemical spill", "evacuate fire", "acid", "nothing here"} {
		want, err := lexicalOnly.Search(context.Background(), q, 5)
		require.NoError(t, err)
		got, err := unavailable.Search(context.Background(), q, 5)
		require.NoError(t, err)

		require.Equal(t, ids(want), ids(got), q)
		for i := range want {
			assert.Equal(t, want[i].Score, got[i].Score, q)
			assert.Equal(t, core.StrategyLexical, got[i].Strategy, q)
		}
	}

	stats, err := unavailable.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Embeddings)
}

func TestSearch_QueryEmbeddingFailureFallsBack(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("timeout")
	}
	s := newTestSearcher(t, exampleCorpus(), WithEmbedder(embedder, fastRetry))
	monitor := &recordingMonitor{}

	results, err := s.SearchWithMonitor(context.Background(), "flame hazard", 5, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
	assert.Equal(t, core.StrategyLexical, monitor.strategy)
	require.Len(t, monitor.fallbacks, 1)
	assert.ErrorIs(t, monitor.fallbacks[0], embedding.ErrEmbeddingUnavailable)
}

func TestSearch_QueryDimensionMismatchFallsBack(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	s := newTestSearcher(t, exampleCorpus(), WithEmbedder(embedder, fastRetry))
	monitor := &recordingMonitor{}

	_, err := s.SearchWithMonitor(context.Background(), "flame hazard", 5, monitor)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyLexical, monitor.strategy)
	require.Len(t, monitor.fallbacks, 1)
	assert.ErrorIs(t, monitor.fallbacks[0], embedding.ErrDimensionMismatch)
}

// faultyScorer fails on chosen documents and scores the rest 1.
type faultyScorer struct {
	panicOn string
	errorOn string
}

func (f *faultyScorer) strategy() core.Strategy { return core.StrategyLexical }
func (f *faultyScorer) threshold() float64      { return 0.1 }
func (f *faultyScorer) score(doc *core.Document) (float64, []string, error) {
	switch doc.ID {
	case f.panicOn:
		var profile map[string]int
		profile["boom"]++
	case f.errorOn:
		return 0, nil, errors.New("corrupt profile")
	}
	return 1, []string{"x"}, nil
}

func TestRank_PartialFailure(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())
	docs := []*core.Document{
		protocol("a", "A", "a"),
		protocol("b", "B", "b"),
		protocol("c", "C", "c"),
		protocol("d", "D", "d"),
	}
	monitor := &recordingMonitor{}

	results, err := s.rank(context.Background(), &faultyScorer{panicOn: "b", errorOn: "c"}, docs, 10, nil, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"protocol/a", "protocol/d"}, ids(results))

	require.Len(t, monitor.failures, 2)
	assert.Equal(t, "b", monitor.failures[0].Ref.ID)
	assert.ErrorIs(t, monitor.failures[0], ErrScoringPanic)
	assert.Equal(t, "c", monitor.failures[1].Ref.ID)
	assert.Contains(t, monitor.failures[1].Error(), "corrupt profile")
}

func TestSearch_PartialFailureSkipsDocument(t *testing.T) {
	var docs []*core.Document
	for i := range 10 {
		docs = append(docs, protocol(fmt.Sprintf("P-%d", i), "Benzene", "benzene vapor release"))
	}
	s := newTestSearcher(t, corpus.NewMemorySource(docs...))

	// Publish a generation whose lexical index has no profile for P-3
	healthy := slices.DeleteFunc(slices.Clone(docs), func(d *core.Document) bool { return d.ID == "P-3" })
	lex, err := lexical.Build(healthy, s.tokenizer)
	require.NoError(t, err)
	s.current.Store(newIndex(1, docs, lex, nil, 0))

	monitor := &recordingMonitor{}
	results, err := s.SearchWithMonitor(context.Background(), "benzene vapor", 5, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"protocol/P-0", "protocol/P-1", "protocol/P-2", "protocol/P-4", "protocol/P-5"}, ids(results))
	require.Len(t, monitor.failures, 1)
	assert.Equal(t, "P-3", monitor.failures[0].Ref.ID)

	results, err = s.Search(context.Background(), "benzene vapor", 20)
	require.NoError(t, err)
	require.Len(t, results, 9)
	for _, r := range results {
		assert.NotEqual(t, "P-3", r.Document.ID)
		assert.Equal(t, 1.0, r.Score)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	source := corpus.NewMemorySource(
		protocol("P-1", "Chlorine gas", "chlorine gas leak evacuate upwind"),
		protocol("P-2", "Ammonia", "ammonia gas leak ventilate"),
		protocol("P-3", "Gasoline", "fuel spill ignition sources"),
		incident("INC-1", "Chlorine leak", "chlorine gas leaked from a valve"),
		incident("INC-2", "Ammonia release", "ammonia gas leak at dock"),
		incident("INC-3", "Fuel spill", "fuel spill near gas pumps"),
	)
	ctx := context.Background()
	query := "gas leak spill"

	first := newTestSearcher(t, source)
	want, err := first.Search(ctx, query, 10)
	require.NoError(t, err)
	require.NotEmpty(t, want)

	fresh := newTestSearcher(t, source)
	for range 20 {
		for _, s := range []*Searcher{first, fresh} {
			got, err := s.Search(ctx, query, 10)
			require.NoError(t, err)
			require.Equal(t, ids(want), ids(got))
			for i := range want {
				assert.Equal(t, want[i].Score, got[i].Score)
				assert.Equal(t, want[i].MatchedTerms, got[i].MatchedTerms)
				assert.Equal(t, want[i].Snippet, got[i].Snippet)
			}
		}
	}
}

func TestRank_Canceled(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.rank(ctx, &faultyScorer{}, []*core.Document{protocol("a", "A", "a")}, 1, nil, &noopMonitor{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebuild(t *testing.T) {
	source := exampleCorpus()
	s := newTestSearcher(t, source)
	ctx := context.Background()

	require.NoError(t, s.Rebuild(ctx))
	assert.Equal(t, uint64(1), s.Generation())

	source.Replace(
		protocol("1", "Flammable Liquids", "flammable liquids ignite flame"),
		protocol("2", "Flame arrestors", "install flame arrestors"),
	)
	require.NoError(t, s.Rebuild(ctx))
	assert.Equal(t, uint64(2), s.Generation())

	results, err := s.Search(ctx, "flame", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRebuild_DuplicateKeepsPreviousGeneration(t *testing.T) {
	source := exampleCorpus()
	s := newTestSearcher(t, source)
	ctx := context.Background()
	require.NoError(t, s.Rebuild(ctx))

	source.Replace(
		protocol("1", "Flammable Liquids", "flammable liquids ignite flame"),
		protocol("1", "Duplicate", "duplicate"),
	)
	err := s.Rebuild(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateDocument)
	assert.Equal(t, uint64(1), s.Generation())

	// The first generation still answers
	results, err := s.Search(ctx, "diesel", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "INC-1", results[0].Document.ID)
}

func TestRebuild_SkipsInvalidDocuments(t *testing.T) {
	s := newTestSearcher(t, corpus.NewMemorySource(
		protocol("", "No id", "flame"),
		protocol("1", "Flammable Liquids", "flammable liquids ignite flame"),
		&core.Document{ID: "2", Kind: core.KindProtocol},
	))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents[core.KindProtocol])
}

type failingSource struct{ err error }

func (f failingSource) ListDocuments(context.Context, core.Kind) ([]*core.Document, error) {
	return nil, f.err
}

func TestSearch_FirstBuildFailure(t *testing.T) {
	sourceErr := errors.New("database offline")
	s, err := NewSearcher(failingSource{err: sourceErr})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Search(context.Background(), "flame", 5)
	assert.ErrorIs(t, err, sourceErr)
	assert.Equal(t, uint64(0), s.Generation())
}

func TestRebuild_ReusesVectorsForUnchangedCorpus(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	s := newTestSearcher(t, exampleCorpus(), WithEmbedder(embedder, fastRetry))
	ctx := context.Background()

	require.NoError(t, s.Rebuild(ctx))
	calls := embedder.CallCount()
	require.Greater(t, calls, 0)

	require.NoError(t, s.Rebuild(ctx))
	assert.Equal(t, calls, embedder.CallCount())
	assert.Equal(t, uint64(2), s.Generation())
}

func TestGet(t *testing.T) {
	s := newTestSearcher(t, exampleCorpus())
	ctx := context.Background()

	doc, err := s.Get(ctx, core.KindIncident, "INC-1")
	require.NoError(t, err)
	assert.Equal(t, "Diesel Fuel Spill", doc.Title)

	_, err = s.Get(ctx, core.KindProtocol, "INC-1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSearch_ConcurrentWithRebuild(t *testing.T) {
	source := exampleCorpus()
	s := newTestSearcher(t, source)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				results, err := s.Search(ctx, "flame hazard", 5)
				assert.NoError(t, err)
				assert.Len(t, results, 1)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, s.Rebuild(ctx))
	}
	wg.Wait()
	assert.GreaterOrEqual(t, s.Generation(), uint64(10))
}
