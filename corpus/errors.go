package corpus

import "errors"

var (
	// ErrMalformedCorpus is returned when a corpus file cannot be decoded.
	ErrMalformedCorpus = errors.New("malformed corpus file")

	// ErrWatcherFailed is returned when the filesystem watcher cannot start.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")
)
