package template

import "errors"

// Sentinel errors for the fail-fast composition paths. In-template mistakes
// (unresolved variables, unknown helpers, unknown transforms, unknown
// partials) never surface as errors; they are logged and left in the output.
var (
	// ErrCircularInclude is returned when a file includes itself, directly
	// or through a chain of other includes.
	ErrCircularInclude = errors.New("circular include")

	// ErrIncludeNotFound is returned when an included file does not exist.
	ErrIncludeNotFound = errors.New("include file not found")

	// ErrMaxIncludeDepth is returned when include nesting exceeds the
	// maximum depth.
	ErrMaxIncludeDepth = errors.New("max include depth exceeded")

	// ErrCircularPartial is returned when a partial references itself,
	// directly or through a chain of other partials.
	ErrCircularPartial = errors.New("circular partial reference")

	// ErrMaxPartialDepth is returned when partial nesting exceeds the
	// maximum depth.
	ErrMaxPartialDepth = errors.New("max partial depth exceeded")
)
