package phase

import "errors"

var (
	// ErrPhaseGrammar is returned when a phase name cannot be tokenized, fails
	// validation, or contains a leg sequence with no interpretation.
	ErrPhaseGrammar = errors.New("phase: grammar violation")

	// ErrRayPath reports a raypath whose accumulated distance decreased.
	ErrRayPath = errors.New("phase: raypath backtracks")
)
