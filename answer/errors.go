package answer

import "errors"

var (
	// ErrEmptyQuery is returned when Compose is called without a query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidMaxLength is returned when a non-positive answer length is configured.
	ErrInvalidMaxLength = errors.New("max length must be positive")

	// ErrInvalidContextSize is returned when a non-positive context size is configured.
	ErrInvalidContextSize = errors.New("context size must be positive")

	// ErrEmptyDetails is returned when a risk assessment is requested without incident details.
	ErrEmptyDetails = errors.New("incident details are required")

	// ErrNoDocuments is returned when Summarize is called without documents.
	ErrNoDocuments = errors.New("no documents to summarize")

	// ErrNoContent is returned when none of the documents has text to summarize.
	ErrNoContent = errors.New("documents have no content to summarize")
)
