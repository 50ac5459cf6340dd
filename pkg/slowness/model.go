// Package slowness converts a layered velocity model into adaptively
// sampled spherical slowness profiles for P and S waves, together with the
// critical structure (discontinuities, slowness extrema, high slowness
// zones and fluid zones) that tau branches are built on.
package slowness

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/taup/pkg/velocity"
	"go.uber.org/zap"
)

var waveTypes = [...]velocity.WaveType{velocity.PWave, velocity.SWave}

// Model is a sampled slowness model. It is immutable once New returns;
// SplitLayer produces a new instance.
type Model struct {
	vMod     *velocity.Model
	radius   float64
	layers   [2][]Layer
	critical []CriticalDepth
	hsz      [2][]DepthRange
	fluid    []DepthRange
	opts     Options
	log      *zap.SugaredLogger
}

// Radius returns the planet radius in km.
func (m *Model) Radius() float64 { return m.radius }

// VelocityModel returns the velocity model the samples were built from.
func (m *Model) VelocityModel() *velocity.Model { return m.vMod }

// Options returns the sampling tolerances.
func (m *Model) Options() Options { return m.opts }

// Logger returns the model's logger, never nil.
func (m *Model) Logger() *zap.SugaredLogger { return m.log }

// NumLayers returns the number of samples for w.
func (m *Model) NumLayers(w velocity.WaveType) int { return len(m.layers[w]) }

// Layer returns sample i for w.
func (m *Model) Layer(i int, w velocity.WaveType) Layer { return m.layers[w][i] }

// Layers returns a copy of the samples for w.
func (m *Model) Layers(w velocity.WaveType) []Layer {
	return append([]Layer(nil), m.layers[w]...)
}

// CriticalDepths returns a copy of the critical depths, surface first.
func (m *Model) CriticalDepths() []CriticalDepth {
	return append([]CriticalDepth(nil), m.critical...)
}

// HighSlownessZones returns a copy of the high slowness zones for w.
func (m *Model) HighSlownessZones(w velocity.WaveType) []DepthRange {
	return append([]DepthRange(nil), m.hsz[w]...)
}

// FluidZones returns a copy of the zones with zero shear velocity.
func (m *Model) FluidZones() []DepthRange {
	return append([]DepthRange(nil), m.fluid...)
}

// LayerNumberAbove returns the sample with top < depth <= bot, or 0 at the
// surface. Zero-thickness samples are never returned.
func (m *Model) LayerNumberAbove(depth float64, w velocity.WaveType) (int, error) {
	layers := m.layers[w]
	if depth < 0 || depth > m.radius || len(layers) == 0 {
		return 0, fmt.Errorf("%w: depth %v outside model", ErrSlownessModel, depth)
	}
	if depth == 0 {
		return 0, nil
	}
	i := sort.Search(len(layers), func(i int) bool { return layers[i].BotDepth >= depth })
	if i == len(layers) || layers[i].TopDepth >= depth {
		return 0, fmt.Errorf("%w: no sample above %v", ErrSlownessModel, depth)
	}
	return i, nil
}

// LayerNumberBelow returns the sample with top <= depth < bot, or the last
// sample at the centre.
func (m *Model) LayerNumberBelow(depth float64, w velocity.WaveType) (int, error) {
	layers := m.layers[w]
	if depth < 0 || depth > m.radius || len(layers) == 0 {
		return 0, fmt.Errorf("%w: depth %v outside model", ErrSlownessModel, depth)
	}
	if depth == m.radius {
		return len(layers) - 1, nil
	}
	i := sort.Search(len(layers), func(i int) bool { return layers[i].BotDepth > depth })
	if i == len(layers) || layers[i].TopDepth > depth {
		return 0, fmt.Errorf("%w: no sample below %v", ErrSlownessModel, depth)
	}
	return i, nil
}

// DepthInHighSlowness reports whether a ray with parameter p at depth is
// inside a high slowness zone, i.e. cannot turn there. At the exact top of a
// zone only p equal to the zone's ray parameter counts.
func (m *Model) DepthInHighSlowness(depth, p float64, w velocity.WaveType) (DepthRange, bool) {
	for _, h := range m.hsz[w] {
		if !h.Contains(depth) {
			continue
		}
		if p > h.RayParam || (p == h.RayParam && depth == h.TopDepth) {
			return h, true
		}
	}
	return DepthRange{}, false
}

// DepthInFluid reports whether depth lies in a fluid zone, top inclusive.
func (m *Model) DepthInFluid(depth float64) (DepthRange, bool) {
	for _, f := range m.fluid {
		if f.TopDepth <= depth && depth < f.BotDepth {
			return f, true
		}
	}
	return DepthRange{}, false
}

// MinTurnRayParam returns the smallest ray parameter that turns at depth.
// Inside a high slowness zone that is the least slowness anywhere above.
func (m *Model) MinTurnRayParam(depth float64, w velocity.WaveType) (float64, error) {
	if _, in := m.DepthInHighSlowness(depth, math.MaxFloat64, w); in {
		minP := math.MaxFloat64
		for _, l := range m.layers[w] {
			if l.BotDepth <= depth {
				minP = math.Min(minP, math.Min(l.TopP, l.BotP))
				continue
			}
			if l.TopDepth < depth {
				p, err := l.EvaluateAt(depth, m.radius)
				if err != nil {
					return 0, err
				}
				minP = math.Min(minP, math.Min(l.TopP, p))
			}
			break
		}
		return minP, nil
	}

	i, err := m.LayerNumberAbove(depth, w)
	if err != nil {
		return 0, err
	}
	l := m.layers[w][i]
	if depth == l.BotDepth {
		return l.BotP, nil
	}
	return l.EvaluateAt(depth, m.radius)
}

// MinRayParam returns the smallest ray parameter that either turns at depth
// or is totally reflected from a discontinuity there.
func (m *Model) MinRayParam(depth float64, w velocity.WaveType) (float64, error) {
	minP, err := m.MinTurnRayParam(depth, w)
	if err != nil {
		return 0, err
	}
	ia, err := m.LayerNumberAbove(depth, w)
	if err != nil {
		return 0, err
	}
	ib, err := m.LayerNumberBelow(depth, w)
	if err != nil {
		return 0, err
	}
	above, below := m.layers[w][ia], m.layers[w][ib]
	if above.BotDepth == depth {
		minP = math.Min(minP, math.Min(above.BotP, below.TopP))
	}
	return minP, nil
}

// ApproxDistance returns the surface-to-surface time and distance of a ray
// with parameter p reflected at the bottom of sample layerNum.
func (m *Model) ApproxDistance(layerNum int, p float64, w velocity.WaveType) (TimeDist, error) {
	if layerNum < 0 || layerNum >= len(m.layers[w]) {
		return TimeDist{}, fmt.Errorf("%w: sample %d out of range", ErrSlownessModel, layerNum)
	}
	td := TimeDist{P: p}
	for _, l := range m.layers[w][:layerNum+1] {
		ltd, err := l.TimeDist(p, m.radius)
		if err != nil {
			return TimeDist{}, err
		}
		td = td.Add(ltd)
	}
	return td.Scale(2), nil
}

// FindDepth returns the depth between topDepth and botDepth where the
// slowness for w equals p, solving exactly within the velocity layer with
// linear velocity. A p that falls in the jump at a velocity discontinuity
// is totally reflected there and the discontinuity depth is returned.
func (m *Model) FindDepth(p, topDepth, botDepth float64, w velocity.WaveType) (float64, error) {
	if topDepth > botDepth {
		return 0, fmt.Errorf("%w: top %v below bottom %v", ErrSlownessModel, topDepth, botDepth)
	}
	if topDepth == botDepth {
		return topDepth, nil
	}
	topV, err := m.vMod.LayerNumberBelow(topDepth)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSlownessModel, err)
	}
	botV, err := m.vMod.LayerNumberAbove(botDepth)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSlownessModel, err)
	}

	for i := topV; i <= botV; i++ {
		vl := m.vMod.Layers[i]
		we := m.effectiveWave(vl, w)
		zt := math.Max(vl.TopDepth, topDepth)
		zb := math.Min(vl.BotDepth, botDepth)
		vt := vl.EvaluateAt(zt, we)
		pt, err := toSlowness(vt, m.radius-zt)
		if err != nil {
			return 0, err
		}
		pb, err := toSlowness(vl.EvaluateAt(zb, we), m.radius-zb)
		if err != nil {
			return 0, err
		}

		switch {
		case p == pt:
			return zt, nil
		case p == pb:
			return zb, nil
		case (pt-p)*(p-pb) > 0:
			slope := (vl.EvaluateAtBottom(we) - vl.EvaluateAtTop(we)) / vl.Thickness()
			z := (m.radius - p*vt + p*slope*zt) / (1 + p*slope)
			return math.Min(math.Max(z, zt), zb), nil
		}

		if i < botV {
			next := m.vMod.Layers[i+1]
			nt, err := toSlowness(next.EvaluateAtTop(m.effectiveWave(next, w)), m.radius-next.TopDepth)
			if err != nil {
				return 0, err
			}
			if (pb-p)*(p-nt) > 0 {
				return zb, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: p=%v between %v and %v km", ErrNotFound, p, topDepth, botDepth)
}

// VelocityAbove returns the velocity seen by w just above depth, using P
// velocities where S waves are not tracked.
func (m *Model) VelocityAbove(depth float64, w velocity.WaveType) (float64, error) {
	i, err := m.vMod.LayerNumberAbove(depth)
	if err != nil {
		return 0, err
	}
	vl := m.vMod.Layers[i]
	return vl.EvaluateAt(depth, m.effectiveWave(vl, w)), nil
}

// VelocityBelow returns the velocity seen by w just below depth.
func (m *Model) VelocityBelow(depth float64, w velocity.WaveType) (float64, error) {
	i, err := m.vMod.LayerNumberBelow(depth)
	if err != nil {
		return 0, err
	}
	vl := m.vMod.Layers[i]
	return vl.EvaluateAt(depth, m.effectiveWave(vl, w)), nil
}

// effectiveWave substitutes P for S in fluid layers and, unless inner core
// S waves are allowed, below the inner core boundary.
func (m *Model) effectiveWave(vl velocity.Layer, w velocity.WaveType) velocity.WaveType {
	if w == velocity.SWave && (vl.IsFluid() || (!m.opts.AllowInnerCoreS && vl.TopDepth >= m.vMod.IOCBDepth)) {
		return velocity.PWave
	}
	return w
}

func (m *Model) layerSlowness(vl velocity.Layer, w velocity.WaveType) (top, bot float64, err error) {
	we := m.effectiveWave(vl, w)
	if top, err = toSlowness(vl.EvaluateAtTop(we), m.radius-vl.TopDepth); err != nil {
		return 0, 0, err
	}
	if bot, err = toSlowness(vl.EvaluateAtBottom(we), m.radius-vl.BotDepth); err != nil {
		return 0, 0, err
	}
	return top, bot, nil
}

func (m *Model) slownessBelow(depth float64, w velocity.WaveType) (float64, error) {
	v, err := m.VelocityBelow(depth, w)
	if err != nil {
		return 0, err
	}
	return toSlowness(v, m.radius-depth)
}

func toSlowness(v, r float64) (float64, error) {
	if r == 0 {
		return 0, nil
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: velocity %v at radius %v", ErrSlownessModel, v, r)
	}
	return r / v, nil
}

// clone copies the mutable slices so a derived model never aliases its parent.
func (m *Model) clone() *Model {
	c := *m
	for _, w := range waveTypes {
		c.layers[w] = append([]Layer(nil), m.layers[w]...)
		c.hsz[w] = append([]DepthRange(nil), m.hsz[w]...)
	}
	c.critical = append([]CriticalDepth(nil), m.critical...)
	c.fluid = append([]DepthRange(nil), m.fluid...)
	return &c
}
