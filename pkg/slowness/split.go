package slowness

import (
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/velocity"
)

// splitDepthTolerance is how close, in km, a requested split may be to an
// existing sample boundary before the boundary is moved instead.
const splitDepthTolerance = 1e-6

// SplitOutcome says what SplitLayer had to do.
type SplitOutcome int

const (
	// SplitNone means depth was already a sample boundary.
	SplitNone SplitOutcome = iota
	// SplitMoved means a boundary within tolerance was moved onto depth and
	// no new ray parameter was created.
	SplitMoved
	// SplitNew means a sample was cut in two at depth.
	SplitNew
)

func (o SplitOutcome) String() string {
	switch o {
	case SplitNone:
		return "none"
	case SplitMoved:
		return "moved"
	}
	return "new"
}

// SplitResult is returned by SplitLayer. RayParam is the slowness at the
// split depth and is only meaningful for SplitNew.
type SplitResult struct {
	Model    *Model
	Outcome  SplitOutcome
	RayParam float64
}

// SplitLayer returns a model whose w samples have a boundary at depth. The
// receiver is never modified. A genuinely new slowness is also inserted
// into every sample of either wave type that strictly contains it.
func (m *Model) SplitLayer(depth float64, w velocity.WaveType) (SplitResult, error) {
	if depth < 0 || depth > m.radius || math.IsNaN(depth) {
		return SplitResult{}, fmt.Errorf("%w: split depth %v outside model", ErrSlownessModel, depth)
	}
	i, err := m.LayerNumberAbove(depth, w)
	if err != nil {
		return SplitResult{}, err
	}
	l := m.layers[w][i]
	if l.TopDepth == depth || l.BotDepth == depth {
		return SplitResult{Model: m, Outcome: SplitNone}, nil
	}

	c := m.clone()
	for _, x := range []float64{l.TopDepth, l.BotDepth} {
		if math.Abs(x-depth) < splitDepthTolerance && !m.isCriticalDepth(x) {
			c.moveBoundary(x, depth, w)
			if err := c.fixCriticalPoints(); err != nil {
				return SplitResult{}, err
			}
			m.log.Debugw("moved slowness boundary", "wave", w, "from", x, "to", depth)
			return SplitResult{Model: c, Outcome: SplitMoved}, nil
		}
	}

	p, err := l.EvaluateAt(depth, m.radius)
	if err != nil {
		return SplitResult{}, err
	}
	layers := c.layers[w]
	split := []Layer{
		{TopP: l.TopP, TopDepth: l.TopDepth, BotP: p, BotDepth: depth},
		{TopP: p, TopDepth: depth, BotP: l.BotP, BotDepth: l.BotDepth},
	}
	c.layers[w] = append(layers[:i:i], append(split, layers[i+1:]...)...)
	if _, err := c.addSlownessBoth(p); err != nil {
		return SplitResult{}, err
	}
	if err := c.fixCriticalPoints(); err != nil {
		return SplitResult{}, err
	}
	m.log.Debugw("split slowness layer", "wave", w, "depth", depth, "p", p)
	return SplitResult{Model: c, Outcome: SplitNew, RayParam: p}, nil
}

func (m *Model) moveBoundary(from, to float64, w velocity.WaveType) {
	for k := range m.layers[w] {
		l := &m.layers[w][k]
		if l.TopDepth == from {
			l.TopDepth = to
		}
		if l.BotDepth == from {
			l.BotDepth = to
		}
	}
}

func (m *Model) isCriticalDepth(depth float64) bool {
	for _, c := range m.critical {
		if c.Depth == depth {
			return true
		}
	}
	return false
}
