package tau

import "errors"

// ErrTauModel marks a tau model structural violation: branch arithmetic
// incompatible with the slowness sampling, a failed validation, a depth
// outside the model, or depth-correcting a model whose source is not at the
// surface.
var ErrTauModel = errors.New("tau: structural violation")
