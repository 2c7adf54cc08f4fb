package corpus

import (
	"context"
	"sync"

	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/storage"
)

// MemorySource is an in-memory storage.DocumentSource.
// Documents are returned per kind in the order they were given.
type MemorySource struct {
	mu   sync.RWMutex
	docs []*core.Document
}

var _ storage.DocumentSource = (*MemorySource)(nil)

func NewMemorySource(docs ...*core.Document) *MemorySource {
	s := &MemorySource{}
	s.Replace(docs...)
	return s
}

// Replace swaps the whole document set.
func (s *MemorySource) Replace(docs ...*core.Document) {
	cp := make([]*core.Document, len(docs))
	copy(cp, docs)

	s.mu.Lock()
	s.docs = cp
	s.mu.Unlock()
}

func (s *MemorySource) ListDocuments(ctx context.Context, kind core.Kind) ([]*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*core.Document
	for _, doc := range s.docs {
		if doc != nil && doc.Kind == kind {
			results = append(results, doc)
		}
	}
	return results, nil
}

// Len returns the number of documents across all kinds.
func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
