package slowness

import "errors"

var (
	// ErrSlownessModel marks a structural violation while sampling: an invalid
	// velocity model, tolerances out of range, a negative or non-finite
	// slowness, or a slowness outside the sample that should bound it.
	ErrSlownessModel = errors.New("slowness: structural violation")

	// ErrNotFound is returned by FindDepth when no depth in the requested
	// range has the given slowness.
	ErrNotFound = errors.New("slowness: ray parameter not found in depth range")
)
