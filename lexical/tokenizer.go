package lexical

import (
	"strings"
	"unicode"
)

// Tokenizer turns text into an ordered list of tokens.
// Implementations must be deterministic and safe for concurrent use.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

func (f TokenizerFunc) Tokenize(text string) []string {
	return f(text)
}

// DefaultTokenizer is the tokenizer used when none is configured.
var DefaultTokenizer Tokenizer = TokenizerFunc(Tokenize)

// Tokenize lowercases text and returns the maximal runs of word characters.
// Anything that is not a letter, a number or an underscore separates tokens.
// Empty or whitespace-only input yields an empty, non-nil slice.
//
//	Tokenize("Fire! Spill-22") // ["fire", "spill", "22"]
func Tokenize(text string) []string {
	tokens := make([]string, 0, len(text)/5)
	start := -1
	lower := strings.ToLower(text)
	for i, r := range lower {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower[start:])
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// StopwordTokenizer drops common function words from another tokenizer's output.
// Retrieval does not need it; it exists for callers that want a denser query.
type StopwordTokenizer struct {
	base  Tokenizer
	words map[string]bool
}

var _ Tokenizer = (*StopwordTokenizer)(nil)

// NewStopwordTokenizer wraps base. With no words given, DefaultStopWords is used.
// A nil base means DefaultTokenizer.
func NewStopwordTokenizer(base Tokenizer, words ...string) *StopwordTokenizer {
	if base == nil {
		base = DefaultTokenizer
	}
	set := make(map[string]bool, len(words))
	if len(words) == 0 {
		for w := range defaultStopWords {
			set[w] = true
		}
	}
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return &StopwordTokenizer{base: base, words: set}
}

func (s *StopwordTokenizer) Tokenize(text string) []string {
	tokens := s.base.Tokenize(text)
	filtered := tokens[:0]
	for _, tok := range tokens {
		if !s.words[tok] {
			filtered = append(filtered, tok)
		}
	}
	return filtered
}

// DefaultStopWords returns a copy of the built-in stopword list.
func DefaultStopWords() []string {
	words := make([]string, 0, len(defaultStopWords))
	for w := range defaultStopWords {
		words = append(words, w)
	}
	return words
}

var defaultStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "should": true, "i": true,
}
