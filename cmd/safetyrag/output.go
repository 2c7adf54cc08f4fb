package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/safetyrag/answer"
	"github.com/poiesic/safetyrag/core"
)

type resultJSON struct {
	ID           string            `json:"id"`
	Kind         core.Kind         `json:"kind"`
	Title        string            `json:"title"`
	Snippet      string            `json:"snippet"`
	Score        float64           `json:"score"`
	Strategy     core.Strategy     `json:"strategy"`
	MatchedTerms []string          `json:"matched_terms,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w io.Writer, results []*core.ScoredResult) error {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{
			ID:           r.Document.ID,
			Kind:         r.Document.Kind,
			Title:        r.Document.Title,
			Snippet:      r.Snippet,
			Score:        r.Score,
			Strategy:     r.Strategy,
			MatchedTerms: r.MatchedTerms,
			Metadata:     r.Document.Metadata,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printResults(w io.Writer, results []*core.ScoredResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	fmt.Fprintf(w, "Found %d results\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%s] %s (%s) %0.3f %s\n", i+1, r.Kind(), r.Document.Title, r.Document.ID, r.Score, r.Strategy)
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", r.Snippet)
		}
	}
}

func printComparison(w io.Writer, c *answer.Comparison) {
	fmt.Fprintf(w, "Response times: %s\n", c.Summary)
}

func printDocument(w io.Writer, doc *core.Document) {
	fmt.Fprintf(w, "%s: %s\n\n%s\n", doc.Ref(), doc.Title, doc.Body)
	if len(doc.Metadata) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, key := range slices.Sorted(maps.Keys(doc.Metadata)) {
		value := strings.ReplaceAll(doc.Metadata[key], "\n", "; ")
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

func printAnswer(w io.Writer, ans *answer.Answer) {
	fmt.Fprintln(w, ans.Text)
	if len(ans.Results) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSources (%s):\n", ans.Source)
	for _, r := range ans.Results {
		fmt.Fprintf(w, "- %s %s\n", r.Document.Ref(), r.Document.Title)
	}
}

type assessmentJSON struct {
	Severity  int      `json:"severity"`
	Level     string   `json:"level"`
	Rationale string   `json:"rationale"`
	Insights  []string `json:"insights"`
}

func writeAssessmentJSON(w io.Writer, a *answer.Assessment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(assessmentJSON{
		Severity:  a.Severity,
		Level:     a.Level,
		Rationale: a.Rationale(),
		Insights:  a.Insights,
	})
}

func printAssessment(w io.Writer, a *answer.Assessment) {
	fmt.Fprintf(w, "Severity: %d/%d (%s)\n\n", a.Severity, answer.MaxSeverity, a.Level)
	fmt.Fprintf(w, "%s\n\n%s\n", a.Rationale(), a.InsightsText())
}

func printSummary(w io.Writer, s *answer.Summary) {
	fmt.Fprintf(w, "Summary of %d documents (%s):\n%s\n", s.Documents, s.Source, s.Text)
}
