package loom

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrSourceClosed indicates a Next() call on a closed event source.
	ErrSourceClosed = errors.New("event source closed")
)
