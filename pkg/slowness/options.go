package slowness

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Options are the sampling tolerances. Ray parameters are in s/rad, depths in
// km, MaxRangeInterval in degrees and MaxInterpError in seconds.
type Options struct {
	MinDeltaP         float64 `json:"min_delta_p"`
	MaxDeltaP         float64 `json:"max_delta_p"`
	MaxDepthInterval  float64 `json:"max_depth_interval"`
	MaxRangeInterval  float64 `json:"max_range_interval"`
	MaxInterpError    float64 `json:"max_interp_error"`
	SlownessTolerance float64 `json:"slowness_tolerance"`
	AllowInnerCoreS   bool    `json:"allow_inner_core_s"`
}

// DefaultOptions returns the classic sampling tolerances.
func DefaultOptions() Options {
	return Options{
		MinDeltaP:         0.1,
		MaxDeltaP:         11.0,
		MaxDepthInterval:  115.0,
		MaxRangeInterval:  2.5,
		MaxInterpError:    0.05,
		SlownessTolerance: 1e-16,
		AllowInnerCoreS:   true,
	}
}

// Validate rejects non-finite or non-positive tolerances.
func (o Options) Validate() error {
	positive := map[string]float64{
		"min delta p":        o.MinDeltaP,
		"max delta p":        o.MaxDeltaP,
		"max depth interval": o.MaxDepthInterval,
		"max range interval": o.MaxRangeInterval,
		"max interp error":   o.MaxInterpError,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrSlownessModel, name, v)
		}
	}
	if o.MaxDeltaP < o.MinDeltaP {
		return fmt.Errorf("%w: max delta p %v below min delta p %v", ErrSlownessModel, o.MaxDeltaP, o.MinDeltaP)
	}
	if o.SlownessTolerance < 0 || math.IsNaN(o.SlownessTolerance) {
		return fmt.Errorf("%w: slowness tolerance %v", ErrSlownessModel, o.SlownessTolerance)
	}
	return nil
}

// Option configures New.
type Option func(*settings)

type settings struct {
	opts   Options
	logger *zap.SugaredLogger
}

// WithOptions replaces all tolerances.
func WithOptions(o Options) Option {
	return func(s *settings) { s.opts = o }
}

// WithAllowInnerCoreS toggles S-wave structure below the inner core boundary.
func WithAllowInnerCoreS(allow bool) Option {
	return func(s *settings) { s.opts.AllowInnerCoreS = allow }
}

// WithLogger sets the logger used for sampling summaries.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
