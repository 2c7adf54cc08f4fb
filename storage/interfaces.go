package storage

import (
	"context"

	"github.com/poiesic/safetyrag/core"
)

// DocumentSource supplies the corpus to the retrieval engine.
// Documents of a kind are returned in insertion order.
type DocumentSource interface {
	// ListDocuments returns all documents of one kind, oldest first.
	ListDocuments(ctx context.Context, kind core.Kind) ([]*core.Document, error)
}

type DocumentRepository interface {
	DocumentSource

	// AddDocuments upserts documents. A new document is appended to its kind's
	// insertion order. Replacing an existing document keeps its position.
	AddDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, ref core.Ref) (*core.Document, error)

	// DeleteDocuments removes documents and their order entries.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, refs ...core.Ref) error

	// CountDocuments returns the number of stored documents of a kind.
	CountDocuments(ctx context.Context, kind core.Kind) (int, error)

	// Close releases the insertion-order sequence.
	Close() error
}

// VectorCache stores embedding vectors keyed by content fingerprint.
// Vectors from different models never mix.
type VectorCache interface {
	// GetVectors returns the cached vectors for the given keys.
	// Missing keys are absent from the result map; that is not an error.
	GetVectors(ctx context.Context, model string, keys ...core.ID) (map[core.ID][]float32, error)

	// PutVectors stores vectors, replacing any existing entries.
	PutVectors(ctx context.Context, model string, vectors map[core.ID][]float32) error

	// CountVectors returns the number of vectors cached for a model.
	CountVectors(ctx context.Context, model string) (int, error)
}

type StandardsRepository interface {
	// SaveStandards replaces the stored industry standards.
	SaveStandards(ctx context.Context, standards *core.Standards) error

	// LoadStandards returns nil, nil if no standards have been saved.
	LoadStandards(ctx context.Context) (*core.Standards, error)
}
