// Package velocity describes radially symmetric planets as a stack of
// depth layers with linearly varying P and S velocities.
package velocity

import (
	"fmt"
	"math"
)

// Model is a layered velocity model of a sphere. Depths are kilometres below
// the surface and the last layer must reach the centre at Radius.
type Model struct {
	Name      string  `json:"name" yaml:"name"`
	Radius    float64 `json:"radius" yaml:"radius"`
	MohoDepth float64 `json:"moho_depth" yaml:"moho_depth"`
	CMBDepth  float64 `json:"cmb_depth" yaml:"cmb_depth"`
	IOCBDepth float64 `json:"iocb_depth" yaml:"iocb_depth"`
	Layers    []Layer `json:"layers" yaml:"layers"`
}

// Validate checks the structural invariants the slowness sampler relies on.
func (m *Model) Validate() error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("%w: %q has no layers", ErrInvalidModel, m.Name)
	}
	if !(m.Radius > 0) || math.IsInf(m.Radius, 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidModel, m.Radius)
	}
	if m.Layers[0].TopDepth != 0 {
		return fmt.Errorf("%w: first layer starts at %v, not the surface", ErrInvalidModel, m.Layers[0].TopDepth)
	}
	last := m.Layers[len(m.Layers)-1]
	if last.BotDepth != m.Radius {
		return fmt.Errorf("%w: last layer ends at %v, radius is %v", ErrInvalidModel, last.BotDepth, m.Radius)
	}

	for i, l := range m.Layers {
		for _, v := range []float64{l.TopDepth, l.BotDepth, l.TopPVelocity, l.BotPVelocity, l.TopSVelocity, l.BotSVelocity} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: layer %d has non-finite value", ErrInvalidModel, i)
			}
		}
		if l.BotDepth <= l.TopDepth {
			return fmt.Errorf("%w: layer %d has non-positive thickness", ErrInvalidModel, i)
		}
		if l.TopPVelocity <= 0 || l.BotPVelocity <= 0 {
			return fmt.Errorf("%w: layer %d has non-positive P velocity", ErrInvalidModel, i)
		}
		if l.TopSVelocity < 0 || l.BotSVelocity < 0 {
			return fmt.Errorf("%w: layer %d has negative S velocity", ErrInvalidModel, i)
		}
		if (l.TopSVelocity == 0) != (l.BotSVelocity == 0) {
			return fmt.Errorf("%w: layer %d is partly fluid", ErrInvalidModel, i)
		}
		if i > 0 && m.Layers[i-1].BotDepth != l.TopDepth {
			return fmt.Errorf("%w: gap or overlap between layers %d and %d", ErrInvalidModel, i-1, i)
		}
	}

	if m.MohoDepth < 0 || m.MohoDepth > m.CMBDepth || m.CMBDepth > m.IOCBDepth || m.IOCBDepth > m.Radius {
		return fmt.Errorf("%w: moho %v, cmb %v, iocb %v out of order", ErrInvalidModel, m.MohoDepth, m.CMBDepth, m.IOCBDepth)
	}
	return nil
}

// LayerNumberAbove returns the index of the layer with top < depth <= bot, or
// layer 0 at the surface.
func (m *Model) LayerNumberAbove(depth float64) (int, error) {
	if depth < 0 || depth > m.Radius {
		return 0, fmt.Errorf("%w: %v", ErrNoSuchLayer, depth)
	}
	if depth == 0 {
		return 0, nil
	}
	for i, l := range m.Layers {
		if l.TopDepth < depth && depth <= l.BotDepth {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrNoSuchLayer, depth)
}

// LayerNumberBelow returns the index of the layer with top <= depth < bot, or
// the last layer at the centre.
func (m *Model) LayerNumberBelow(depth float64) (int, error) {
	if depth < 0 || depth > m.Radius {
		return 0, fmt.Errorf("%w: %v", ErrNoSuchLayer, depth)
	}
	if depth == m.Radius {
		return len(m.Layers) - 1, nil
	}
	for i, l := range m.Layers {
		if l.TopDepth <= depth && depth < l.BotDepth {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrNoSuchLayer, depth)
}

// EvaluateAbove returns the velocity just above depth.
func (m *Model) EvaluateAbove(depth float64, w WaveType) (float64, error) {
	i, err := m.LayerNumberAbove(depth)
	if err != nil {
		return 0, err
	}
	return m.Layers[i].EvaluateAt(depth, w), nil
}

// EvaluateBelow returns the velocity just below depth.
func (m *Model) EvaluateBelow(depth float64, w WaveType) (float64, error) {
	i, err := m.LayerNumberBelow(depth)
	if err != nil {
		return 0, err
	}
	return m.Layers[i].EvaluateAt(depth, w), nil
}

// DisconDepths returns the surface, every interior depth where velocity
// jumps, and the centre.
func (m *Model) DisconDepths() []float64 {
	depths := []float64{0}
	for i := 0; i < len(m.Layers)-1; i++ {
		above, below := m.Layers[i], m.Layers[i+1]
		if above.BotPVelocity != below.TopPVelocity || above.BotSVelocity != below.TopSVelocity {
			depths = append(depths, above.BotDepth)
		}
	}
	return append(depths, m.Radius)
}

// IsDiscontinuity reports whether depth is one of DisconDepths.
func (m *Model) IsDiscontinuity(depth float64) bool {
	for _, d := range m.DisconDepths() {
		if d == depth {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := *m
	c.Layers = append([]Layer(nil), m.Layers...)
	return &c
}
