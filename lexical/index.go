package lexical

import (
	"github.com/poiesic/safetyrag/core"
)

// Profile is the set of distinct tokens found in a document.
type Profile map[string]struct{}

// NewProfile builds a profile from a token list.
func NewProfile(tokens []string) Profile {
	p := make(Profile, len(tokens))
	for _, tok := range tokens {
		p[tok] = struct{}{}
	}
	return p
}

// Contains reports whether the profile holds a token.
func (p Profile) Contains(token string) bool {
	_, ok := p[token]
	return ok
}

// Index maps documents to their lexical profiles.
type Index struct {
	tokenizer Tokenizer
	profiles  map[core.Ref]Profile
}

// Build tokenizes every document and returns a new index.
// Duplicate (kind, id) pairs fail the whole build with an *IndexBuildError.
// The same id under different kinds is allowed. A nil tokenizer means DefaultTokenizer.
func Build(docs []*core.Document, tokenizer Tokenizer) (*Index, error) {
	if tokenizer == nil {
		tokenizer = DefaultTokenizer
	}
	idx := &Index{
		tokenizer: tokenizer,
		profiles:  make(map[core.Ref]Profile, len(docs)),
	}
	for _, doc := range docs {
		ref := doc.Ref()
		if _, exists := idx.profiles[ref]; exists {
			return nil, &IndexBuildError{Ref: ref, Err: core.ErrDuplicateDocument}
		}
		idx.profiles[ref] = NewProfile(tokenizer.Tokenize(doc.SearchText()))
	}
	return idx, nil
}

// Lookup returns the profile for a document.
func (idx *Index) Lookup(ref core.Ref) (Profile, bool) {
	p, ok := idx.profiles[ref]
	return p, ok
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.profiles)
}

// Tokenizer returns the tokenizer the index was built with.
// Queries must use the same tokenizer to be comparable.
func (idx *Index) Tokenizer() Tokenizer {
	return idx.tokenizer
}
