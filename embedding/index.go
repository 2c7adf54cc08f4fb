package embedding

import (
	"context"
	"fmt"

	"github.com/poiesic/safetyrag/core"
)

// DefaultThreshold is the minimum cosine similarity a document must exceed.
const DefaultThreshold = 0.3

// Index maps each document to one unit-length vector of uniform dimension.
type Index struct {
	vectors    map[core.Ref][]float32
	dimensions int
}

// Build embeds the search text of every document.
// Fails if embedding fails or vectors disagree on dimension.
func Build(ctx context.Context, docs []*core.Document, batcher *Batcher) (*Index, error) {
	if batcher == nil {
		return nil, ErrEmbeddingUnavailable
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.SearchText()
	}

	vectors, err := batcher.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		vectors: make(map[core.Ref][]float32, len(docs)),
	}
	for i, doc := range docs {
		v := vectors[i]
		if idx.dimensions == 0 {
			idx.dimensions = len(v)
		} else if len(v) != idx.dimensions {
			return nil, fmt.Errorf("%w: %s has %d, index has %d", ErrDimensionMismatch, doc.Ref(), len(v), idx.dimensions)
		}
		idx.vectors[doc.Ref()] = v
	}
	return idx, nil
}

// Similarity returns the cosine similarity between a document and a query vector.
func (idx *Index) Similarity(ref core.Ref, query []float32) (float64, error) {
	v, ok := idx.vectors[ref]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrVectorMissing, ref)
	}
	return Cosine(v, query)
}

// Vector returns the stored vector for a document.
func (idx *Index) Vector(ref core.Ref) ([]float32, bool) {
	v, ok := idx.vectors[ref]
	return v, ok
}

func (idx *Index) Dimensions() int {
	return idx.dimensions
}

func (idx *Index) Len() int {
	return len(idx.vectors)
}
