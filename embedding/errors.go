package embedding

import "errors"

var (
	// ErrEmbeddingUnavailable is returned when no embedder is configured or the service fails.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch is returned when two vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrVectorMissing is returned when a document has no vector in the index.
	ErrVectorMissing = errors.New("vector missing")

	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
