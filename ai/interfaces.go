package ai

import (
	"context"
	"errors"
)

// ErrUnavailable indicates an AI service cannot currently serve requests.
// Callers treat it as a signal to fall back to non-AI behavior.
var ErrUnavailable = errors.New("ai service unavailable")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator writes prose from a prompt and supporting context passages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces a response to prompt, grounded in the context passages.
	// maxLength bounds the response length in tokens.
	// Returns an error if the service fails; callers are expected to fall back.
	Generate(ctx context.Context, prompt string, context []string, maxLength int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// EmbeddingModel names the model behind Embedder. Cached vectors are keyed by it.
	EmbeddingModel() string

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
