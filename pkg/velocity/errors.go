package velocity

import "errors"

var (
	// ErrInvalidModel is returned when a velocity model fails validation:
	// no layers, gaps or overlaps between layers, non-finite or negative
	// velocities, or reference discontinuities outside the model.
	ErrInvalidModel = errors.New("velocity: invalid model")

	// ErrNoSuchLayer indicates a depth outside [0, radius].
	ErrNoSuchLayer = errors.New("velocity: no layer at depth")

	// ErrUnknownModel is returned by Lookup for a name with no registered model.
	ErrUnknownModel = errors.New("velocity: unknown model")
)
