package tau

import (
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/velocity"
)

// Branch tabulates distance, time and tau for one wave type across the
// depth interval between two critical depths, at every ray parameter of its
// model. A ray with parameter above MaxRayParam never reaches the branch and
// contributes zero.
type Branch struct {
	WaveType        velocity.WaveType `json:"wave_type"`
	TopDepth        float64           `json:"top_depth"`
	BotDepth        float64           `json:"bot_depth"`
	MaxRayParam     float64           `json:"max_ray_param"`
	MinTurnRayParam float64           `json:"min_turn_ray_param"`
	MinRayParam     float64           `json:"min_ray_param"`
	Dist            []float64         `json:"dist"`
	Time            []float64         `json:"time"`
	Tau             []float64         `json:"tau"`
}

// newBranch integrates sMod between topDepth and botDepth at every ray
// parameter in rayParams.
func newBranch(sMod *slowness.Model, w velocity.WaveType, topDepth, botDepth, maxRayParam float64, rayParams []float64) (*Branch, error) {
	b := &Branch{
		WaveType:    w,
		TopDepth:    topDepth,
		BotDepth:    botDepth,
		MaxRayParam: maxRayParam,
	}
	var err error
	if b.MinTurnRayParam, err = sMod.MinTurnRayParam(botDepth, w); err != nil {
		return nil, err
	}
	if b.MinRayParam, err = sMod.MinRayParam(botDepth, w); err != nil {
		return nil, err
	}

	n := len(rayParams)
	b.Dist, b.Time, b.Tau = make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range rayParams {
		if err := b.setColumn(sMod, i, p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Branch) setColumn(sMod *slowness.Model, i int, p float64) error {
	td, err := b.CalcTimeDist(sMod, p)
	if err != nil {
		return err
	}
	b.Dist[i] = td.Dist
	b.Time[i] = td.Time
	b.Tau[i] = td.Time - p*td.Dist
	return nil
}

// layerRange returns the first and last slowness samples of the branch.
func (b *Branch) layerRange(sMod *slowness.Model) (top, bot int, err error) {
	if top, err = sMod.LayerNumberBelow(b.TopDepth, b.WaveType); err != nil {
		return 0, 0, err
	}
	if bot, err = sMod.LayerNumberAbove(b.BotDepth, b.WaveType); err != nil {
		return 0, 0, err
	}
	return top, bot, nil
}

// CalcTimeDist integrates a one-way pass of ray parameter p through the
// branch, stopping at the turning depth if the ray turns inside it.
func (b *Branch) CalcTimeDist(sMod *slowness.Model, p float64) (slowness.TimeDist, error) {
	td := slowness.TimeDist{P: p, Depth: b.TopDepth}
	if p > b.MaxRayParam {
		return td, nil
	}
	top, bot, err := b.layerRange(sMod)
	if err != nil {
		return td, err
	}
	radius := sMod.Radius()
	for i := top; i <= bot; i++ {
		l := sMod.Layer(i, b.WaveType)
		if p <= l.TopP && p <= l.BotP {
			ltd, err := l.TimeDist(p, radius)
			if err != nil {
				return td, err
			}
			td = td.Add(ltd)
			continue
		}
		if l.TopP > p && p > l.BotP {
			ltd, err := l.TurningTimeDist(p, radius)
			if err != nil {
				return td, err
			}
			td = td.Add(ltd)
		}
		break
	}
	return td, nil
}

// TurningDepth returns where a downgoing ray with parameter p leaves the
// branch: inside the sample whose slowness drops past p, at the top of a
// sample it cannot enter, or at the branch bottom when it passes through.
// It agrees with the sample cut CalcTimeDist and Path integrate to.
func (b *Branch) TurningDepth(sMod *slowness.Model, p float64) (float64, error) {
	if p > b.MaxRayParam {
		return b.TopDepth, nil
	}
	top, bot, err := b.layerRange(sMod)
	if err != nil {
		return 0, err
	}
	for i := top; i <= bot; i++ {
		l := sMod.Layer(i, b.WaveType)
		if p <= l.TopP && p <= l.BotP {
			continue
		}
		if l.TopP > p && p > l.BotP {
			return l.BullenDepthFor(p, sMod.Radius())
		}
		return l.TopDepth, nil
	}
	return b.BotDepth, nil
}

// Path returns the per-sample increments of a ray crossing the branch, in
// travel order. Each increment's Depth is where that segment ends: a sample
// bottom or the turning depth going down, a sample top going up.
func (b *Branch) Path(sMod *slowness.Model, p float64, downgoing bool) ([]slowness.TimeDist, error) {
	if p > b.MaxRayParam {
		return nil, nil
	}
	top, bot, err := b.layerRange(sMod)
	if err != nil {
		return nil, err
	}
	radius := sMod.Radius()

	type segment struct {
		td       slowness.TimeDist
		top, bot float64
	}
	var segs []segment
	for i := top; i <= bot; i++ {
		l := sMod.Layer(i, b.WaveType)
		if l.IsZeroThickness() {
			continue
		}
		if p <= l.TopP && p <= l.BotP {
			td, err := l.TimeDist(p, radius)
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{td, l.TopDepth, l.BotDepth})
			continue
		}
		if l.TopP > p && p > l.BotP {
			td, err := l.TurningTimeDist(p, radius)
			if err != nil {
				return nil, err
			}
			d, err := l.BullenDepthFor(p, radius)
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{td, l.TopDepth, d})
		}
		break
	}

	out := make([]slowness.TimeDist, 0, len(segs))
	if downgoing {
		for _, s := range segs {
			s.td.Depth = s.bot
			out = append(out, s.td)
		}
		return out, nil
	}
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		s.td.Depth = s.top
		out = append(out, s.td)
	}
	return out, nil
}

// insertColumns returns a copy of b with extra ray parameter columns. idx
// maps each old column to its new position and fresh lists the positions
// that need integrating.
func (b *Branch) insertColumns(sMod *slowness.Model, rayParams []float64, idx []int, fresh []int) (*Branch, error) {
	c := *b
	n := len(rayParams)
	c.Dist, c.Time, c.Tau = make([]float64, n), make([]float64, n), make([]float64, n)
	for old, pos := range idx {
		c.Dist[pos] = b.Dist[old]
		c.Time[pos] = b.Time[old]
		c.Tau[pos] = b.Tau[old]
	}
	for _, pos := range fresh {
		if err := c.setColumn(sMod, pos, rayParams[pos]); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (b *Branch) validate(n int) error {
	if len(b.Dist) != n || len(b.Time) != n || len(b.Tau) != n {
		return fmt.Errorf("%w: %v branch %v-%v has %d/%d/%d samples, want %d",
			ErrTauModel, b.WaveType, b.TopDepth, b.BotDepth, len(b.Dist), len(b.Time), len(b.Tau), n)
	}
	for i := range b.Dist {
		if math.IsNaN(b.Dist[i]) || math.IsNaN(b.Time[i]) || math.IsNaN(b.Tau[i]) {
			return fmt.Errorf("%w: %v branch %v-%v sample %d is NaN", ErrTauModel, b.WaveType, b.TopDepth, b.BotDepth, i)
		}
	}
	return nil
}

func (b *Branch) String() string {
	return fmt.Sprintf("%v %.3f-%.3f km p[max=%.4f minTurn=%.4f min=%.4f]",
		b.WaveType, b.TopDepth, b.BotDepth, b.MaxRayParam, b.MinTurnRayParam, b.MinRayParam)
}
