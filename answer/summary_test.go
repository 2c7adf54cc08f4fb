package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/safetyrag/ai/mock"
	"github.com/poiesic/safetyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryDocs() []*core.Document {
	return []*core.Document{
		{ID: "HM-001", Kind: core.KindProtocol, Title: "Chlorine", Body: "Chlorine is toxic. Evacuate upwind. Call responders."},
		{ID: "INC-001", Kind: core.KindIncident, Title: "Acid spill", Body: "Acid spill. Neutralize."},
	}
}

func TestSummarize_Validation(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = c.Summarize(context.Background(), []*core.Document{{ID: "x", Kind: core.KindIncident, Body: "  "}})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSummarize_Extractive(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	summary, err := c.Summarize(context.Background(), summaryDocs())
	require.NoError(t, err)
	assert.Equal(t, SourceExtractive, summary.Source)
	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, "Chlorine is toxic. Acid spill.", summary.Text)
}

func TestSummarize_ExtractiveSamplesLongCollections(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	doc := &core.Document{
		ID:   "HM-009",
		Kind: core.KindProtocol,
		Body: "S1. S2. S3. S4. S5. S6. S7. S8. S9. S10. S11. S12.",
	}
	summary, err := c.Summarize(context.Background(), []*core.Document{doc})
	require.NoError(t, err)
	assert.Equal(t, "S1. S4. S5. S6. S7. S8.", summary.Text)
}

func TestSummarize_Generated(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.GenerateFunc = func(_ context.Context, prompt string, passages []string, maxLength int) (string, error) {
		assert.Equal(t, summaryPrompt, prompt)
		assert.Equal(t, []string{"Chlorine is toxic. Evacuate upwind. Call responders.", "Acid spill. Neutralize."}, passages)
		assert.Equal(t, DefaultSummaryLength, maxLength)
		return "Chlorine and acid releases need evacuation.", nil
	}
	c, err := NewComposer(WithGenerator(gen))
	require.NoError(t, err)

	summary, err := c.Summarize(context.Background(), summaryDocs())
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, summary.Source)
	assert.Equal(t, "Chlorine and acid releases need evacuation.", summary.Text)

	summary, err = c.Summarize(context.Background(), summaryDocs())
	require.NoError(t, err)
	assert.Equal(t, SourceCached, summary.Source)
	assert.Equal(t, 1, gen.CallCount())
}

func TestSummarize_GeneratorFallback(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string, []string, int) (string, error)
	}{
		{"error", func(context.Context, string, []string, int) (string, error) {
			return "", errors.New("model offline")
		}},
		{"too short", func(context.Context, string, []string, int) (string, error) {
			return "  ok  ", nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mock.NewMockGenerator()
			gen.GenerateFunc = tt.fn
			c, err := NewComposer(WithGenerator(gen))
			require.NoError(t, err)

			summary, err := c.Summarize(context.Background(), summaryDocs())
			require.NoError(t, err)
			assert.Equal(t, SourceExtractive, summary.Source)
			assert.Equal(t, "Chlorine is toxic. Acid spill.", summary.Text)
		})
	}
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Leak found.", "Area cleared!", "Why?", "v1.2 patched"},
		splitSentences("Leak found. Area cleared!  Why? v1.2 patched"))
	assert.Empty(t, splitSentences("   "))
}
