package search

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/lexical"
)

// FindSimilar returns up to topN incidents similar to descriptionOrID.
// If the argument is the id of an incident, that incident's text is the
// query and the incident itself is excluded. Otherwise the argument is the
// query text, and the first incident in corpus order whose text has the same
// tokens is taken to be the query's own document and excluded. Other
// incidents sharing that text remain candidates.
func (s *Searcher) FindSimilar(ctx context.Context, descriptionOrID string, topN int) ([]*core.ScoredResult, error) {
	return s.FindSimilarWithMonitor(ctx, descriptionOrID, topN, nil)
}

func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, descriptionOrID string, topN int, monitor SearchMonitor) ([]*core.ScoredResult, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(descriptionOrID)

	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}

	text := descriptionOrID
	self := idx.byRef[core.Ref{Kind: core.KindIncident, ID: strings.TrimSpace(descriptionOrID)}]
	if self != nil {
		text = self.SearchText()
	} else {
		self = findByText(idx.incidents, descriptionOrID)
	}

	var exclude func(*core.Document) bool
	if self != nil {
		selfRef := self.Ref()
		exclude = func(doc *core.Document) bool {
			return doc.Ref() == selfRef
		}
	}

	return s.query(ctx, idx, text, idx.incidents, topN, exclude, monitor)
}

// findByText returns the first document whose description, body or search
// text tokenizes to the same sequence as text.
func findByText(docs []*core.Document, text string) *core.Document {
	want := lexical.Tokenize(text)
	if len(want) == 0 {
		return nil
	}
	for _, doc := range docs {
		for _, candidate := range []string{doc.Meta(core.MetaDescription), doc.Body, doc.SearchText()} {
			if slices.Equal(lexical.Tokenize(candidate), want) {
				return doc
			}
		}
	}
	return nil
}
