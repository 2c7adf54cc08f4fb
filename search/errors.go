package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/safetyrag/core"
)

var (
	// ErrSourceRequired is returned when a document source is not provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrInvalidTopN is returned when fewer than one result is requested.
	ErrInvalidTopN = errors.New("topN must be at least 1")

	// ErrInvalidThreshold is returned for a negative or NaN threshold.
	ErrInvalidThreshold = errors.New("threshold must be a non-negative number")

	// ErrDocumentNotFound is returned by Get when no document has the given kind and id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrScoringPanic wraps a panic recovered while scoring a document.
	ErrScoringPanic = errors.New("panic while scoring document")
)

// ScoringError reports a document that could not be scored for one query.
// The document is left out of that query's results.
type ScoringError struct {
	Ref core.Ref
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring %s: %v", e.Ref, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
