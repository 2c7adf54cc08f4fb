package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/safetyrag/ai/mock"
	"github.com/poiesic/safetyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protocolResult(id, title string, score float64) *core.ScoredResult {
	return &core.ScoredResult{
		Document: &core.Document{
			ID:    id,
			Kind:  core.KindProtocol,
			Title: title,
			Body:  "Flammable liquid hazard. Eliminate ignition sources",
			Metadata: map[string]string{
				core.MetaDescription:       "Flammable liquid hazard",
				core.MetaProtocols:         "Eliminate ignition sources\nUse foam",
				core.MetaEmergencyResponse: "Call 911",
			},
		},
		Score:    score,
		Strategy: core.StrategyLexical,
	}
}

func incidentResult(id, hazard, minutes string, score float64) *core.ScoredResult {
	meta := map[string]string{
		core.MetaDescription: "Drum leaked solvent",
		core.MetaResolution:  "Absorbed and disposed",
	}
	if hazard != "" {
		meta[core.MetaHazardType] = hazard
	}
	if minutes != "" {
		meta[core.MetaResponseTimeMinutes] = minutes
	}
	return &core.ScoredResult{
		Document: &core.Document{
			ID:       id,
			Kind:     core.KindIncident,
			Title:    "Solvent leak " + id,
			Body:     "Drum leaked solvent Absorbed and disposed",
			Metadata: meta,
		},
		Score:    score,
		Strategy: core.StrategyLexical,
	}
}

func TestNewComposer_Options(t *testing.T) {
	_, err := NewComposer(WithMaxLength(0))
	assert.ErrorIs(t, err, ErrInvalidMaxLength)

	_, err = NewComposer(WithContextSize(-1))
	assert.ErrorIs(t, err, ErrInvalidContextSize)

	c, err := NewComposer(WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLength, c.maxLength)
	assert.Equal(t, DefaultContextSize, c.contextSize)
}

func TestCompose_EmptyQuery(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	_, err = c.Compose(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestCompose_Generated(t *testing.T) {
	gen := mock.NewMockGenerator()
	var gotPassages []string
	var gotMax int
	gen.GenerateFunc = func(_ context.Context, prompt string, passages []string, maxLength int) (string, error) {
		gotPassages = passages
		gotMax = maxLength
		assert.Contains(t, prompt, "User query: gasoline fire")
		return "Eliminate ignition sources and use foam.", nil
	}

	c, err := NewComposer(WithGenerator(gen))
	require.NoError(t, err)

	results := []*core.ScoredResult{
		protocolResult("P-1", "Gasoline", 0.9),
		incidentResult("INC-1", "chemical", "12", 0.5),
	}
	ans, err := c.Compose(context.Background(), "gasoline fire", results)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ans.Source)
	assert.Equal(t, "Eliminate ignition sources and use foam.", ans.Text)
	assert.Len(t, ans.Results, 2)
	assert.Equal(t, DefaultMaxLength, gotMax)
	require.Len(t, gotPassages, 2)
	assert.Contains(t, gotPassages[0], `"id": "P-1"`)
	assert.Contains(t, gotPassages[1], `"relevance_score": 0.5`)
}

func TestCompose_CachesGeneratedAnswers(t *testing.T) {
	gen := mock.NewMockGenerator()
	c, err := NewComposer(WithGenerator(gen))
	require.NoError(t, err)

	results := []*core.ScoredResult{protocolResult("P-1", "Gasoline", 0.9)}
	first, err := c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, first.Source)

	second, err := c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)
	assert.Equal(t, SourceCached, second.Source)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, gen.CallCount())

	// A different context is a different cache entry
	_, err = c.Compose(context.Background(), "gasoline", []*core.ScoredResult{protocolResult("P-2", "Diesel", 0.9)})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.CallCount())
}

func TestCompose_CacheExpires(t *testing.T) {
	gen := mock.NewMockGenerator()
	c, err := NewComposer(WithGenerator(gen), WithCacheTTL(10*time.Millisecond))
	require.NoError(t, err)

	results := []*core.ScoredResult{protocolResult("P-1", "Gasoline", 0.9)}
	_, err = c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	ans, err := c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ans.Source)
	assert.Equal(t, 2, gen.CallCount())
}

func TestCompose_FallsBackToTemplate(t *testing.T) {
	tests := []struct {
		name string
		gen  *mock.MockGenerator
	}{
		{"no generator", nil},
		{"generator error", &mock.MockGenerator{
			GenerateFunc: func(context.Context, string, []string, int) (string, error) {
				return "", errors.New("service down")
			},
		}},
		{"short response", &mock.MockGenerator{
			GenerateFunc: func(context.Context, string, []string, int) (string, error) {
				return "   too short   ", nil
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.gen != nil {
				opts = append(opts, WithGenerator(tt.gen))
			}
			c, err := NewComposer(opts...)
			require.NoError(t, err)

			results := []*core.ScoredResult{
				protocolResult("P-1", "Gasoline", 0.9),
				incidentResult("INC-7", "chemical", "12", 0.5),
			}
			ans, err := c.Compose(context.Background(), "gasoline", results)
			require.NoError(t, err)
			assert.Equal(t, SourceTemplate, ans.Source)
			assert.True(t, strings.HasPrefix(ans.Text, "Here's what I found:\n\n"))
			assert.Contains(t, ans.Text, "According to the Emergency Guidebook on Gasoline:\nFlammable liquid hazard")
			assert.Contains(t, ans.Text, "Recommended protocols:\n- Eliminate ignition sources\n- Use foam")
			assert.Contains(t, ans.Text, "In an emergency: Call 911")
			assert.Contains(t, ans.Text, "\n\n---\n\n")
			assert.Contains(t, ans.Text, "Based on a similar incident (INC-7): Solvent leak INC-7\nDrum leaked solvent")
			assert.Contains(t, ans.Text, "Resolution: Absorbed and disposed")
		})
	}
}

func TestCompose_ShortResponseNotCached(t *testing.T) {
	calls := 0
	gen := &mock.MockGenerator{
		GenerateFunc: func(context.Context, string, []string, int) (string, error) {
			calls++
			return "ok", nil
		},
	}
	c, err := NewComposer(WithGenerator(gen))
	require.NoError(t, err)

	results := []*core.ScoredResult{protocolResult("P-1", "Gasoline", 0.9)}
	_, err = c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)
	_, err = c.Compose(context.Background(), "gasoline", results)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCompose_ContextSize(t *testing.T) {
	gen := mock.NewMockGenerator()
	c, err := NewComposer(WithGenerator(gen), WithContextSize(2))
	require.NoError(t, err)

	results := []*core.ScoredResult{
		protocolResult("P-1", "A", 0.9),
		protocolResult("P-2", "B", 0.8),
		protocolResult("P-3", "C", 0.7),
	}
	ans, err := c.Compose(context.Background(), "hazard", results)
	require.NoError(t, err)
	require.Len(t, ans.Results, 2)
	assert.Equal(t, "P-1", ans.Results[0].Document.ID)
	assert.Contains(t, ans.Text, "using 2 passages")
}

func TestCompose_NoResults(t *testing.T) {
	gen := mock.NewMockGenerator()
	c, err := NewComposer(WithGenerator(gen))
	require.NoError(t, err)

	tests := []struct {
		query    string
		expected string
	}{
		{"what to do after a chemical spill", chemicalSpillAnswer},
		{"Fire in the warehouse", fireAnswer},
		{"evacuation routes", fireAnswer},
		{"Which PPE do I need", ppeAnswer},
		{"personal protective equipment", ppeAnswer},
		{"quarterly budget", noResultsAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ans, err := c.Compose(context.Background(), tt.query, nil)
			require.NoError(t, err)
			assert.Equal(t, SourceTemplate, ans.Source)
			assert.Equal(t, tt.expected, ans.Text)
			assert.Empty(t, ans.Results)
		})
	}
	assert.Zero(t, gen.CallCount())
}
