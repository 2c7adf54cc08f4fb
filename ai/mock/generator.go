package mock

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, echoes the prompt and the number of context passages.
	GenerateFunc func(ctx context.Context, prompt string, context []string, maxLength int) (string, error)

	callCount atomic.Int64
}

// NewMockGenerator creates a mock generator with default echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a deterministic answer.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, context []string, maxLength int) (string, error) {
	m.callCount.Add(1)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, context, maxLength)
	}

	return fmt.Sprintf("Answer to %q using %d passages.", prompt, len(context)), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockGenerator) Reset() {
	m.callCount.Store(0)
	m.GenerateFunc = nil
}
