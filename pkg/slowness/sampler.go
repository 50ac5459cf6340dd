package slowness

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/velocity"
	"go.uber.org/zap"
)

// maxRefinePasses bounds the refinement loops. Splits are placed by solving
// the velocity layer in floating point, so a pass can leave a few samples
// marginally too thick.
const maxRefinePasses = 20

// New samples vMod into a slowness model satisfying every tolerance in the
// options at once.
func New(vMod *velocity.Model, opts ...Option) (*Model, error) {
	s := settings{opts: DefaultOptions(), logger: zap.NewNop().Sugar()}
	for _, o := range opts {
		o(&s)
	}
	if vMod == nil {
		return nil, fmt.Errorf("%w: nil velocity model", ErrSlownessModel)
	}
	if err := vMod.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSlownessModel, err)
	}
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		vMod:   vMod.Clone(),
		radius: vMod.Radius,
		opts:   s.opts,
		log:    s.logger,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"critical points", m.findCriticalPoints},
		{"coarse sample", m.coarseSample},
		{"ray parameter check", m.rayParamIncCheck},
		{"depth check", m.depthIncCheck},
		{"distance check", m.distanceCheck},
		{"critical layer numbers", m.fixCriticalPoints},
		{"validate", m.validate},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	m.log.Debugw("sampled slowness model",
		"model", vMod.Name,
		"p_layers", len(m.layers[velocity.PWave]),
		"s_layers", len(m.layers[velocity.SWave]),
		"critical_depths", len(m.critical),
		"p_high_slowness", len(m.hsz[velocity.PWave]),
		"s_high_slowness", len(m.hsz[velocity.SWave]),
		"fluid_zones", len(m.fluid),
	)
	return m, nil
}

func (m *Model) addCritical(depth float64, velLayer int) {
	if n := len(m.critical); n > 0 && m.critical[n-1].Depth == depth {
		return
	}
	m.critical = append(m.critical, CriticalDepth{Depth: depth, VelLayerNum: velLayer})
}

// findCriticalPoints walks the velocity layers from the surface, recording
// discontinuities, slowness extrema, high slowness zones and fluid zones.
func (m *Model) findCriticalPoints() error {
	vls := m.vMod.Layers

	var (
		minP      [2]float64
		inHSZ     [2]bool
		hszTop    [2]float64
		prevSlope [2]int
		inFluid   bool
		fluidTop  float64
	)

	m.addCritical(0, 0)
	for _, w := range waveTypes {
		top, _, err := m.layerSlowness(vls[0], w)
		if err != nil {
			return err
		}
		minP[w] = top
	}

	for i, vl := range vls {
		switch {
		case vl.IsFluid() && !inFluid:
			inFluid, fluidTop = true, vl.TopDepth
		case !vl.IsFluid() && inFluid:
			m.fluid = append(m.fluid, DepthRange{TopDepth: fluidTop, BotDepth: vl.TopDepth})
			inFluid = false
		}

		var top, bot [2]float64
		for _, w := range waveTypes {
			var err error
			if top[w], bot[w], err = m.layerSlowness(vl, w); err != nil {
				return err
			}
		}

		critical := false
		if i > 0 {
			prev := vls[i-1]
			if prev.BotPVelocity != vl.TopPVelocity || prev.BotSVelocity != vl.TopSVelocity {
				critical = true
			}
		}
		for _, w := range waveTypes {
			slope := sign(bot[w] - top[w])
			if slope == 0 {
				continue
			}
			if prevSlope[w] != 0 && slope != prevSlope[w] {
				critical = true
			}
			prevSlope[w] = slope
		}
		if critical {
			m.addCritical(vl.TopDepth, i)
		}

		for _, w := range waveTypes {
			if inHSZ[w] && top[w] < minP[w] {
				m.hsz[w] = append(m.hsz[w], DepthRange{TopDepth: hszTop[w], BotDepth: vl.TopDepth, RayParam: minP[w]})
				inHSZ[w] = false
			}
			if !inHSZ[w] {
				if top[w] > minP[w] {
					inHSZ[w], hszTop[w] = true, vl.TopDepth
				} else {
					minP[w] = top[w]
				}
			}

			switch {
			case inHSZ[w] && bot[w] < minP[w]:
				d, err := m.FindDepth(minP[w], vl.TopDepth, vl.BotDepth, w)
				if err != nil {
					return fmt.Errorf("closing high slowness zone: %w", err)
				}
				m.hsz[w] = append(m.hsz[w], DepthRange{TopDepth: hszTop[w], BotDepth: d, RayParam: minP[w]})
				inHSZ[w] = false
				minP[w] = bot[w]
			case !inHSZ[w] && bot[w] > top[w]:
				inHSZ[w], hszTop[w] = true, vl.TopDepth
			case !inHSZ[w]:
				minP[w] = math.Min(minP[w], bot[w])
			}
		}
	}

	if inFluid {
		m.fluid = append(m.fluid, DepthRange{TopDepth: fluidTop, BotDepth: m.radius})
	}
	for _, w := range waveTypes {
		if inHSZ[w] {
			// slowness is zero at the centre, so a zone left open is a bad model
			return fmt.Errorf("%w: %v high slowness zone from %v km never closes", ErrSlownessModel, w, hszTop[w])
		}
	}
	m.addCritical(m.radius, len(vls)-1)
	return nil
}

// coarseSample builds one sample per velocity layer plus a zero-thickness
// sample at each discontinuity, then makes sure high slowness zone
// boundaries and every boundary slowness of either wave type are sampled in
// both sequences.
func (m *Model) coarseSample() error {
	for _, w := range waveTypes {
		var out []Layer
		var prevBot float64
		for i, vl := range m.vMod.Layers {
			top, bot, err := m.layerSlowness(vl, w)
			if err != nil {
				return err
			}
			if i > 0 && prevBot != top {
				out = append(out, Layer{TopP: prevBot, TopDepth: vl.TopDepth, BotP: top, BotDepth: vl.TopDepth})
			}
			out = append(out, Layer{TopP: top, TopDepth: vl.TopDepth, BotP: bot, BotDepth: vl.BotDepth})
			prevBot = bot
		}
		m.layers[w] = out
	}

	for _, w := range waveTypes {
		for _, h := range m.hsz[w] {
			if _, err := m.addSlownessBoth(h.RayParam); err != nil {
				return err
			}
		}
	}
	for _, w := range waveTypes {
		for k, h := range m.hsz[w] {
			m.hsz[w][k].BotDepth = m.snapToSample(h, w)
		}
	}
	return m.shareBreakpoints()
}

// snapToSample moves a high slowness zone bottom onto the sample boundary
// carrying the zone's ray parameter. The two are solved on different depth
// intervals and can differ in the last bits.
func (m *Model) snapToSample(h DepthRange, w velocity.WaveType) float64 {
	if m.vMod.IsDiscontinuity(h.BotDepth) {
		return h.BotDepth
	}
	best, bestDiff := h.BotDepth, math.MaxFloat64
	for _, l := range m.layers[w] {
		if l.IsZeroThickness() || l.BotP != h.RayParam || l.BotDepth <= h.TopDepth {
			continue
		}
		if diff := math.Abs(l.BotDepth - h.BotDepth); diff < bestDiff {
			best, bestDiff = l.BotDepth, diff
		}
	}
	return best
}

// shareBreakpoints adds every boundary slowness of either sequence to both
// until neither changes. Fluid samples use P velocities for S, so a split
// made in one sequence must be repeated in the other.
func (m *Model) shareBreakpoints() error {
	for pass := 0; pass < maxRefinePasses; pass++ {
		seen := make(map[float64]bool)
		var ps []float64
		for _, w := range waveTypes {
			for _, l := range m.layers[w] {
				for _, p := range [...]float64{l.TopP, l.BotP} {
					if !seen[p] {
						seen[p] = true
						ps = append(ps, p)
					}
				}
			}
		}

		changed := false
		for _, p := range ps {
			c, err := m.addSlownessBoth(p)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if !changed {
			return nil
		}
	}
	return fmt.Errorf("%w: shared breakpoints did not converge", ErrSlownessModel)
}

// rayParamIncCheck splits samples whose slowness span exceeds MaxDeltaP into
// equal steps.
func (m *Model) rayParamIncCheck() error {
	var ps []float64
	for _, w := range waveTypes {
		for _, l := range m.layers[w] {
			diff := l.BotP - l.TopP
			if math.Abs(diff) <= m.opts.MaxDeltaP {
				continue
			}
			n := math.Ceil(math.Abs(diff) / m.opts.MaxDeltaP)
			for k := 1.0; k < n; k++ {
				ps = append(ps, l.TopP+k*diff/n)
			}
		}
	}
	for _, p := range ps {
		if _, err := m.addSlownessBoth(p); err != nil {
			return err
		}
	}
	return nil
}

// depthIncCheck splits samples thicker than MaxDepthInterval, taking the
// new slowness from the velocity model at equally spaced depths.
func (m *Model) depthIncCheck() error {
	tol := m.opts.SlownessTolerance
	for pass := 0; pass < maxRefinePasses; pass++ {
		var ps []float64
		for _, w := range waveTypes {
			for _, l := range m.layers[w] {
				thick := l.BotDepth - l.TopDepth
				if thick <= m.opts.MaxDepthInterval {
					continue
				}
				n := math.Ceil(thick / m.opts.MaxDepthInterval)
				for k := 1.0; k < n; k++ {
					p, err := m.slownessBelow(l.TopDepth+k*thick/n, w)
					if err != nil {
						return err
					}
					if l.Contains(p) && math.Abs(p-l.TopP) > tol && math.Abs(p-l.BotP) > tol {
						ps = append(ps, p)
					}
				}
			}
		}

		changed := false
		for _, p := range ps {
			c, err := m.addSlownessBoth(p)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if !changed {
			return nil
		}
	}
	m.log.Warnw("depth refinement stopped before converging", "passes", maxRefinePasses)
	return nil
}

// distanceCheck walks adjacent samples outside high slowness zones, splitting
// where the surface reflection distance jumps by more than MaxRangeInterval
// or where linear interpolation of time misses the exact value by more than
// MaxInterpError.
func (m *Model) distanceCheck() error {
	maxRange := m.opts.MaxRangeInterval * math.Pi / 180
	splittable := func(l Layer) bool {
		return !l.IsZeroThickness() && math.Abs(l.TopP-l.BotP) > 2*m.opts.MinDeltaP
	}

	for _, w := range waveTypes {
		j := 0
		for j < len(m.layers[w]) {
			l := m.layers[w][j]
			if l.IsZeroThickness() {
				j++
				continue
			}
			if _, in := m.DepthInHighSlowness(l.BotDepth, l.BotP, w); in {
				j++
				continue
			}
			prev, ok, err := m.prevTimeDist(j, w)
			if err != nil {
				return err
			}
			if !ok {
				j++
				continue
			}
			curr, err := m.ApproxDistance(j, l.BotP, w)
			if err != nil {
				return err
			}

			if math.Abs(curr.Dist-prev.Dist) > maxRange && splittable(l) {
				changed, err := m.addSlownessBoth((l.TopP + l.BotP) / 2)
				if err != nil {
					return err
				}
				if changed {
					continue
				}
			}

			interpErr, err := m.interpError(j, prev, curr, w)
			if err != nil {
				return err
			}
			if interpErr > m.opts.MaxInterpError {
				changed := false
				if j > 0 {
					if pl := m.layers[w][j-1]; splittable(pl) {
						c, err := m.addSlownessBoth((pl.TopP + pl.BotP) / 2)
						if err != nil {
							return err
						}
						changed = c
					}
				}
				if splittable(l) {
					c, err := m.addSlownessBoth((l.TopP + l.BotP) / 2)
					if err != nil {
						return err
					}
					changed = changed || c
				}
				if changed {
					j = max(j-1, 0)
					continue
				}
			}
			j++
		}
	}
	return nil
}

// prevTimeDist returns the surface reflection for the bottom of sample j-1,
// or a horizontal ray at the surface for j == 0. ok is false when the
// previous bottom lies inside a high slowness zone.
func (m *Model) prevTimeDist(j int, w velocity.WaveType) (TimeDist, bool, error) {
	if j == 0 {
		return TimeDist{P: m.layers[w][0].TopP}, true, nil
	}
	pl := m.layers[w][j-1]
	if _, in := m.DepthInHighSlowness(pl.BotDepth, pl.BotP, w); in {
		return TimeDist{}, false, nil
	}
	td, err := m.ApproxDistance(j-1, pl.BotP, w)
	return td, err == nil, err
}

// interpError compares the exact surface reflection time for the midpoint
// ray parameter of sample j with linear interpolation between prev and curr.
func (m *Model) interpError(j int, prev, curr TimeDist, w velocity.WaveType) (float64, error) {
	l := m.layers[w][j]
	if curr.Dist == prev.Dist || !(l.TopP > l.BotP) {
		return 0, nil
	}
	pm := (prev.P + curr.P) / 2
	if !(l.TopP > pm && pm > l.BotP) {
		return 0, nil
	}

	split := TimeDist{P: pm}
	if j > 0 {
		above, err := m.ApproxDistance(j-1, pm, w)
		if err != nil {
			return 0, err
		}
		split = above
	}
	half, err := l.TurningTimeDist(pm, m.radius)
	if err != nil {
		return 0, err
	}
	split = split.Add(half.Scale(2))

	linear := prev.Time + (split.Dist-prev.Dist)*(curr.Time-prev.Time)/(curr.Dist-prev.Dist)
	return math.Abs(split.Time - linear), nil
}

// fixCriticalPoints resolves the sample index each critical depth starts at.
func (m *Model) fixCriticalPoints() error {
	for i := range m.critical {
		c := &m.critical[i]
		for _, w := range waveTypes {
			n := len(m.layers[w])
			if c.Depth != m.radius {
				var err error
				if n, err = m.LayerNumberBelow(c.Depth, w); err != nil {
					return err
				}
			}
			if w == velocity.PWave {
				c.PLayerNum = n
			} else {
				c.SLayerNum = n
			}
		}
	}
	return nil
}

// validate checks every sample and that each sequence covers the model
// without gaps.
func (m *Model) validate() error {
	var errs []error
	for _, w := range waveTypes {
		layers := m.layers[w]
		if len(layers) == 0 {
			return fmt.Errorf("%w: no %v samples", ErrSlownessModel, w)
		}
		if layers[0].TopDepth != 0 || layers[len(layers)-1].BotDepth != m.radius {
			errs = append(errs, fmt.Errorf("%w: %v samples do not span the model", ErrSlownessModel, w))
		}
		for i, l := range layers {
			if err := l.validate(m.radius); err != nil {
				errs = append(errs, err)
			}
			if i > 0 && (layers[i-1].BotDepth != l.TopDepth || layers[i-1].BotP != l.TopP) {
				errs = append(errs, fmt.Errorf("%w: %v samples %d and %d are not contiguous", ErrSlownessModel, w, i-1, i))
			}
		}
	}
	return errors.Join(errs...)
}

// addSlowness splits every sample of w that strictly contains p at the depth
// where the velocity model has slowness p.
func (m *Model) addSlowness(p float64, w velocity.WaveType) (bool, error) {
	tol := m.opts.SlownessTolerance
	src := m.layers[w]
	out := make([]Layer, 0, len(src)+2)
	changed := false
	for _, l := range src {
		if l.IsZeroThickness() || !l.Contains(p) || math.Abs(p-l.TopP) <= tol || math.Abs(p-l.BotP) <= tol {
			out = append(out, l)
			continue
		}
		d, err := m.FindDepth(p, l.TopDepth, l.BotDepth, w)
		if errors.Is(err, ErrNotFound) {
			// p is within rounding of a boundary the velocity layer puts elsewhere
			out = append(out, l)
			continue
		}
		if err != nil {
			return false, err
		}
		if d <= l.TopDepth || d >= l.BotDepth {
			out = append(out, l)
			continue
		}
		out = append(out,
			Layer{TopP: l.TopP, TopDepth: l.TopDepth, BotP: p, BotDepth: d},
			Layer{TopP: p, TopDepth: d, BotP: l.BotP, BotDepth: l.BotDepth},
		)
		changed = true
	}
	m.layers[w] = out
	return changed, nil
}

// addSlownessBoth adds p to both sequences so they share every breakpoint
// and fluid samples stay identical.
func (m *Model) addSlownessBoth(p float64) (bool, error) {
	cp, err := m.addSlowness(p, velocity.PWave)
	if err != nil {
		return false, err
	}
	cs, err := m.addSlowness(p, velocity.SWave)
	if err != nil {
		return false, err
	}
	return cp || cs, nil
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
