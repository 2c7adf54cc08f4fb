package search

import (
	"strings"
	"time"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/embedding"
	"github.com/poiesic/safetyrag/lexical"
)

// Index is one immutable generation of the corpus and its profiles.
type Index struct {
	generation  uint64
	builtAt     time.Time
	docs        []*core.Document // Corpus order
	incidents   []*core.Document
	byRef       map[core.Ref]*core.Document
	lexical     *lexical.Index
	embedding   *embedding.Index // nil when the generation is lexical only
	fingerprint core.ID
}

func newIndex(generation uint64, docs []*core.Document, lex *lexical.Index, emb *embedding.Index, fingerprint core.ID) *Index {
	idx := &Index{
		generation:  generation,
		builtAt:     time.Now().UTC(),
		docs:        docs,
		byRef:       make(map[core.Ref]*core.Document, len(docs)),
		lexical:     lex,
		embedding:   emb,
		fingerprint: fingerprint,
	}
	for _, doc := range docs {
		idx.byRef[doc.Ref()] = doc
		if doc.Kind == core.KindIncident {
			idx.incidents = append(idx.incidents, doc)
		}
	}
	return idx
}

func (idx *Index) Generation() uint64 {
	return idx.generation
}

func (idx *Index) Len() int {
	return len(idx.docs)
}

// HasEmbeddings reports whether this generation can answer embedding queries.
func (idx *Index) HasEmbeddings() bool {
	return idx.embedding != nil
}

// Stats describes an index generation.
type Stats struct {
	Generation  uint64
	BuiltAt     time.Time
	Documents   map[core.Kind]int
	Embeddings  bool
	Dimensions  int
	Fingerprint core.ID
}

func (idx *Index) stats() Stats {
	st := Stats{
		Generation:  idx.generation,
		BuiltAt:     idx.builtAt,
		Documents:   make(map[core.Kind]int, len(core.Kinds)),
		Embeddings:  idx.embedding != nil,
		Fingerprint: idx.fingerprint,
	}
	for _, doc := range idx.docs {
		st.Documents[doc.Kind]++
	}
	if idx.embedding != nil {
		st.Dimensions = idx.embedding.Dimensions()
	}
	return st
}

// fingerprintDocuments hashes the searchable content of the corpus in order.
func fingerprintDocuments(docs []*core.Document) core.ID {
	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(string(doc.Kind))
		sb.WriteByte(0)
		sb.WriteString(doc.ID)
		sb.WriteByte(0)
		sb.WriteString(doc.SearchText())
		sb.WriteByte(0x1e)
	}
	return core.IDFromContent(sb.String())
}
