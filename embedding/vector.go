package embedding

import (
	"fmt"
	"math"
)

// NormalizeVector returns a unit-length copy of v.
// A zero vector stays zero.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	magnitude := math.Sqrt(dot(v, v))
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Cosine returns the cosine similarity of a and b.
// Returns 0 if either vector has zero magnitude.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	magA := math.Sqrt(dot(a, a))
	magB := math.Sqrt(dot(b, b))
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot(a, b) / (magA * magB), nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
