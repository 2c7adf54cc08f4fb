package reembed

import "errors"

var (
	// ErrSourceRequired is returned when no document source is provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCacheRequired is returned when no vector cache or model name is provided.
	ErrCacheRequired = errors.New("vector cache and model required")
)
