package slowness

import (
	"fmt"
	"math"
)

// bullenTolerance is the smallest Bullen exponent treated as non-zero. Below
// it the slowness is constant across the layer.
const bullenTolerance = 1e-12

// Layer is one slowness sample for a single wave type. Slowness is spherical,
// p = r/v in s/rad, and between TopDepth and BotDepth follows the Bullen law
// p = A*r^B. A zero-thickness layer marks a first-order discontinuity.
type Layer struct {
	TopP     float64 `json:"top_p"`
	TopDepth float64 `json:"top_depth"`
	BotP     float64 `json:"bot_p"`
	BotDepth float64 `json:"bot_depth"`
}

// IsZeroThickness reports whether the layer is a discontinuity jump.
func (l Layer) IsZeroThickness() bool {
	return l.TopDepth == l.BotDepth
}

// Contains reports whether p lies strictly between TopP and BotP.
func (l Layer) Contains(p float64) bool {
	return (l.TopP-p)*(p-l.BotP) > 0
}

func (l Layer) validate(radius float64) error {
	for _, v := range []float64{l.TopP, l.BotP, l.TopDepth, l.BotDepth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite layer %v", ErrSlownessModel, l)
		}
	}
	if l.TopP < 0 || l.BotP < 0 {
		return fmt.Errorf("%w: negative slowness in %v", ErrSlownessModel, l)
	}
	if l.TopDepth > l.BotDepth || l.TopDepth < 0 || l.BotDepth > radius {
		return fmt.Errorf("%w: bad depths in %v", ErrSlownessModel, l)
	}
	return nil
}

// bullenB returns the exponent B of the Bullen law. Layers touching the
// centre use B = 1, i.e. constant velocity.
func (l Layer) bullenB(radius float64) float64 {
	rt := radius - l.TopDepth
	rb := radius - l.BotDepth
	if rb == 0 || l.BotP == 0 {
		return 1
	}
	return math.Log(l.TopP/l.BotP) / math.Log(rt/rb)
}

// EvaluateAt returns the Bullen-interpolated slowness at depth.
func (l Layer) EvaluateAt(depth, radius float64) (float64, error) {
	if depth < l.TopDepth || depth > l.BotDepth {
		return 0, fmt.Errorf("%w: depth %v outside %v", ErrSlownessModel, depth, l)
	}
	switch depth {
	case l.TopDepth:
		return l.TopP, nil
	case l.BotDepth:
		return l.BotP, nil
	}
	rt := radius - l.TopDepth
	r := radius - depth
	p := l.TopP * math.Pow(r/rt, l.bullenB(radius))
	if math.IsNaN(p) || p < 0 {
		return 0, fmt.Errorf("%w: slowness %v at %v in %v", ErrSlownessModel, p, depth, l)
	}
	return p, nil
}

// BullenDepthFor inverts the Bullen law, returning the depth within the layer
// where the slowness equals p.
func (l Layer) BullenDepthFor(p, radius float64) (float64, error) {
	switch {
	case p == l.TopP:
		return l.TopDepth, nil
	case p == l.BotP:
		return l.BotDepth, nil
	case l.IsZeroThickness():
		return l.TopDepth, nil
	case !l.Contains(p):
		return 0, fmt.Errorf("%w: slowness %v outside %v", ErrSlownessModel, p, l)
	}

	rt := radius - l.TopDepth
	b := l.bullenB(radius)
	if math.Abs(b) < bullenTolerance {
		return 0, fmt.Errorf("%w: constant slowness in %v", ErrSlownessModel, l)
	}
	r := rt * math.Exp(math.Log(p/l.TopP)/b)
	depth := radius - r
	if math.IsNaN(depth) {
		return 0, fmt.Errorf("%w: no Bullen depth for %v in %v", ErrSlownessModel, p, l)
	}
	// rounding can push the result a hair outside the layer
	if depth < l.TopDepth {
		depth = l.TopDepth
	}
	if depth > l.BotDepth {
		depth = l.BotDepth
	}
	return depth, nil
}

// TimeDist integrates the one-way time and distance of a ray with parameter p
// across the whole layer. p must not exceed either boundary slowness; a ray
// that turns inside the layer is integrated on the layer cut at its turning
// depth, whose bottom slowness equals p.
func (l Layer) TimeDist(p, radius float64) (TimeDist, error) {
	td := TimeDist{P: p, Depth: l.BotDepth}
	if l.IsZeroThickness() {
		return td, nil
	}
	if p > l.TopP || p > l.BotP {
		return td, fmt.Errorf("%w: ray parameter %v exceeds %v", ErrSlownessModel, p, l)
	}

	st := math.Sqrt(math.Max(l.TopP*l.TopP-p*p, 0))
	sb := math.Sqrt(math.Max(l.BotP*l.BotP-p*p, 0))
	b := l.bullenB(radius)

	if math.Abs(b) < bullenTolerance {
		if st == 0 {
			return td, nil
		}
		lnr := math.Log((radius - l.TopDepth) / (radius - l.BotDepth))
		td.Dist = p * lnr / st
		td.Time = l.TopP * l.TopP * lnr / st
	} else {
		td.Dist = (math.Atan2(st, p) - math.Atan2(sb, p)) / b
		td.Time = (st - sb) / b
	}

	if math.IsNaN(td.Dist) || math.IsNaN(td.Time) || td.Dist < -1e-12 || td.Time < -1e-9 {
		return td, fmt.Errorf("%w: time %v dist %v for p=%v in %v", ErrSlownessModel, td.Time, td.Dist, p, l)
	}
	td.Dist = math.Max(td.Dist, 0)
	td.Time = math.Max(td.Time, 0)
	return td, nil
}

// TurningTimeDist integrates p through the layer, stopping at the turning
// depth when slowness decreases past p inside the layer.
func (l Layer) TurningTimeDist(p, radius float64) (TimeDist, error) {
	if !(l.TopP > p && p > l.BotP) {
		return l.TimeDist(p, radius)
	}
	d, err := l.BullenDepthFor(p, radius)
	if err != nil {
		return TimeDist{}, err
	}
	return Layer{TopP: l.TopP, TopDepth: l.TopDepth, BotP: p, BotDepth: d}.TimeDist(p, radius)
}

func (l Layer) String() string {
	return fmt.Sprintf("[%.4f km p=%.4f, %.4f km p=%.4f]", l.TopDepth, l.TopP, l.BotDepth, l.BotP)
}
