package safetyrag

import "errors"

// ErrNoProvider is returned by operations that need an AI provider when none is configured.
var ErrNoProvider = errors.New("no AI provider configured")
