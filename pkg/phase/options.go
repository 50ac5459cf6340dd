package phase

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Options control phase interpretation and arrival extraction. Angles are
// in degrees.
type Options struct {
	// Expert allows phases to open with K, k or I.
	Expert bool `json:"expert" yaml:"expert"`
	// MaxDiffraction is how far a diffracted wave runs along the core.
	MaxDiffraction float64 `json:"max_diffraction" yaml:"max_diffraction"`
	// MaxRefraction is how far a head wave runs along the Moho.
	MaxRefraction float64 `json:"max_refraction" yaml:"max_refraction"`
	// Refine shoots rays to solve for the exact ray parameter instead of
	// interpolating between curve samples.
	Refine bool `json:"refine" yaml:"refine"`
}

func DefaultOptions() Options {
	return Options{
		MaxDiffraction: 60,
		MaxRefraction:  20,
		Refine:         true,
	}
}

func (o Options) Validate() error {
	for name, v := range map[string]float64{"max diffraction": o.MaxDiffraction, "max refraction": o.MaxRefraction} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative angle, got %v", ErrPhaseGrammar, name, v)
		}
	}
	return nil
}

// Option configures New.
type Option func(*settings)

type settings struct {
	opts Options
	log  *zap.SugaredLogger
}

func WithOptions(o Options) Option {
	return func(s *settings) { s.opts = o }
}

func WithExpert(expert bool) Option {
	return func(s *settings) { s.opts.Expert = expert }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
