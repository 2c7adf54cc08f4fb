package lexical

import "sort"

// DefaultThreshold is the minimum score a document must exceed to be a result.
const DefaultThreshold = 0.1

// Query is a tokenized query ready for scoring. It is safe for concurrent use.
type Query struct {
	length int
	counts map[string]int
}

// NewQuery builds a query from tokens, keeping duplicates.
func NewQuery(tokens []string) *Query {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return &Query{length: len(tokens), counts: counts}
}

// Len returns the number of query tokens including duplicates.
func (q *Query) Len() int {
	return q.length
}

// Empty reports whether the query has no tokens.
func (q *Query) Empty() bool {
	return q.length == 0
}

// Score returns the overlap score of a profile and the sorted matched tokens.
// An empty query or an empty intersection scores zero with no matches.
func (q *Query) Score(p Profile) (float64, []string) {
	if q.length == 0 {
		return 0, nil
	}

	var matched []string
	sum := 0
	for tok, count := range q.counts {
		if p.Contains(tok) {
			matched = append(matched, tok)
			sum += count
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	sort.Strings(matched)
	return float64(sum) / float64(q.length), matched
}

// Matches returns the sorted query tokens present in the profile without scoring.
func (q *Query) Matches(p Profile) []string {
	_, matched := q.Score(p)
	return matched
}
