package partialstore

import "errors"

// Sentinel errors for partial loading and lookup.
var (
	// ErrNotFound is returned when a partial name is not in the store.
	ErrNotFound = errors.New("partial not found")

	// ErrNoName is returned when a partial file has neither a front-matter
	// name nor a usable file stem.
	ErrNoName = errors.New("partial has no name")
)
