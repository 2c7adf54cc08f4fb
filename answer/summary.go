package answer

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/poiesic/safetyrag/core"
)

const (
	// DefaultSummaryLength bounds generated summaries.
	DefaultSummaryLength = 300

	summaryPrompt = "Please summarize the following safety documents, focusing on key safety information, protocols, and critical details:"

	// Extractive summaries sample extra sentences only from corpora longer
	// than extraSentenceThreshold, skipping extraSentenceMargin at each end.
	extraSentenceThreshold = 10
	extraSentenceMargin    = 3
	maxExtraSentences      = 5
)

// Summary is a combined summary of several documents.
type Summary struct {
	Text      string
	Source    Source
	Documents int
}

// Summarize combines docs into one summary. The generator is tried first;
// without one, or when it fails or returns too little, the summary is the
// first sentence of each document plus a few sentences from the middle of
// the collection.
func (c *Composer) Summarize(ctx context.Context, docs []*core.Document) (*Summary, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	var contents []string
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		content := strings.TrimSpace(doc.Body)
		if content == "" {
			content = strings.TrimSpace(doc.Title)
		}
		if content != "" {
			contents = append(contents, content)
		}
	}
	if len(contents) == 0 {
		return nil, ErrNoContent
	}

	summary := &Summary{Documents: len(contents)}
	if c.generator != nil {
		if text, source, ok := c.generate(ctx, summaryPrompt, contents, DefaultSummaryLength); ok {
			summary.Text = text
			summary.Source = source
			return summary, nil
		}
		c.logger.Warn("falling back to extractive summary", "documents", len(contents))
	}

	summary.Text = extractiveSummary(contents)
	summary.Source = SourceExtractive
	return summary, nil
}

func extractiveSummary(contents []string) string {
	var (
		all    []string
		chosen []string
		firsts = make(map[int]bool)
	)
	for _, content := range contents {
		sentences := splitSentences(content)
		if len(sentences) > 0 {
			firsts[len(all)] = true
			chosen = append(chosen, sentences[0])
		}
		all = append(all, sentences...)
	}

	if len(all) > extraSentenceThreshold {
		var candidates []int
		for i := extraSentenceMargin; i < len(all)-extraSentenceMargin; i++ {
			if !firsts[i] {
				candidates = append(candidates, i)
			}
		}
		for _, i := range spread(candidates, maxExtraSentences) {
			chosen = append(chosen, all[i])
		}
	}
	return strings.Join(chosen, " ")
}

// spread picks up to n evenly spaced items from items, keeping their order.
func spread(items []int, n int) []int {
	if len(items) <= n {
		return slices.Clone(items)
	}
	picked := make([]int, n)
	for k := range n {
		picked[k] = items[k*len(items)/n]
	}
	return picked
}

// splitSentences breaks text after '.', '!' or '?' when followed by
// whitespace or the end of the text.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
