// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Simulate an outage
//	down := mock.NewUnavailableEmbedder(ai.ErrUnavailable)
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit-length bag-of-words vectors, so texts that
//     share words are similar
//   - MockGenerator: Echoes the prompt and the number of context passages
//   - MockProvider: Aggregates mock embedder and generator
package mock
