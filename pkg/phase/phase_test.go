package phase

import (
	"math"
	"sort"
	"testing"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/tau"
	"github.com/chrissnell/taup/pkg/velocity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate/quad"
)

func newTauModel(t *testing.T, name string, opts ...slowness.Option) *tau.Model {
	t.Helper()
	vMod, err := velocity.Lookup(name)
	require.NoError(t, err)
	sMod, err := slowness.New(vMod, opts...)
	require.NoError(t, err)
	m, err := tau.New(sMod)
	require.NoError(t, err)
	return m
}

func TestUniformDirectP(t *testing.T) {
	m := newTauModel(t, "uniform")
	ph, err := New("P", m)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Branch: 0, Wave: velocity.PWave, Down: true, Action: ActionTurn},
		{Branch: 0, Wave: velocity.PWave, Down: false, Action: ActionEnd},
	}, ph.Segments())
	assert.InDelta(t, 180, ph.MaxDistance(), 1e-9)

	arrivals, err := ph.Arrivals(60)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	a := arrivals[0]
	// a 60 degree chord is one radius long
	assert.InDelta(t, 637.1, a.Time, 1e-6)
	assert.InDelta(t, 6371*math.Sin(math.Pi/3)/10, a.RayParam, 1e-6)
	assert.InDelta(t, 60, a.TakeoffAngle, 1e-6)
	assert.InDelta(t, 60, a.IncidentAngle, 1e-6)
	assert.Equal(t, 60.0, a.Dist)
	assert.Equal(t, "P", a.PuristName)

	// folding onto 0-180
	for _, d := range []float64{300, -60, 420} {
		as, err := ph.Arrivals(d)
		require.NoError(t, err)
		require.Len(t, as, 1, "%v", d)
		assert.InDelta(t, 637.1, as[0].Time, 1e-6)
	}
}

func TestInterpolatedArrival(t *testing.T) {
	m := newTauModel(t, "uniform")
	opts := DefaultOptions()
	opts.Refine = false
	ph, err := New("P", m, WithOptions(opts))
	require.NoError(t, err)

	arrivals, err := ph.Arrivals(60)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.InDelta(t, 637.1, arrivals[0].Time, 0.5)
}

func TestReflectionBounds(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	cmbAbove := m.Branch(velocity.PWave, m.CMBBranch()-1)

	pcp, err := New("PcP", m)
	require.NoError(t, err)
	assert.Equal(t, cmbAbove.MinTurnRayParam, pcp.MaxRayParam())
	assert.Zero(t, pcp.MinRayParam())

	segs := pcp.Segments()
	require.NotEmpty(t, segs)
	assert.Equal(t, ActionReflectTopside, segs[m.CMBBranch()-1].Action)
	assert.Equal(t, ActionEnd, segs[len(segs)-1].Action)

	pkp, err := New("PKP", m)
	require.NoError(t, err)
	assert.LessOrEqual(t, pkp.MaxRayParam(), m.Branch(velocity.PWave, m.CMBBranch()-1).MinTurnRayParam)
	assert.Equal(t, m.Branch(velocity.PWave, m.IOCBBranch()-1).MinTurnRayParam, pkp.MinRayParam())
	assert.True(t, pkp.HasArrivals())
}

func TestPuristName(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	tests := map[string]string{
		"Pv2800P":   "Pv2889P",
		"S^410S":    "S^35S",
		"PcP":       "PcP",
		"PKiKP":     "PKiKP",
		"P^mP":      "P^mP",
		"4.0kmps":   "4.0kmps",
		"PKv5100KP": "PKv5153.9KP",
	}
	for name, want := range tests {
		ph, err := New(name, m)
		require.NoError(t, err, name)
		assert.Equal(t, want, ph.PuristName(), name)
		assert.Equal(t, name, ph.Name())
	}
}

func TestSurfaceWave(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	ph, err := New("4.0kmps", m)
	require.NoError(t, err)

	arrivals, err := ph.Arrivals(30)
	require.NoError(t, err)
	require.Len(t, arrivals, 2)
	assert.InDelta(t, math.Pi/6*6371/4, arrivals[0].Time, 1e-9)
	assert.Equal(t, 30.0, arrivals[0].Dist)
	assert.InDelta(t, 330, arrivals[1].Dist, 1e-9)
	assert.Equal(t, 90.0, arrivals[0].TakeoffAngle)

	arrivals, err = ph.PathsAndArrivals(30)
	require.NoError(t, err)
	path := arrivals[0].Path
	assert.Len(t, path, 31)
	assert.InDelta(t, arrivals[0].Time, path[len(path)-1].Time, 1e-9)
}

func TestNoRayIsNotAnError(t *testing.T) {
	surface := newTauModel(t, "linear-earth")
	deep, err := surface.DepthCorrect(100)
	require.NoError(t, err)

	tests := []struct {
		name string
		tMod *tau.Model
	}{
		{"Pg", deep},
		{"Sb", deep},
		{"p", surface},
		{"sS", surface},
	}
	for _, tt := range tests {
		ph, err := New(tt.name, tt.tMod)
		require.NoError(t, err, tt.name)
		assert.False(t, ph.HasArrivals(), tt.name)
		assert.Equal(t, -1.0, ph.MinRayParam(), tt.name)
		arrivals, err := ph.Arrivals(30)
		require.NoError(t, err)
		assert.Empty(t, arrivals, tt.name)
	}

	noInnerS := newTauModel(t, "linear-earth", slowness.WithAllowInnerCoreS(false))
	ph, err := New("PKJKP", noInnerS)
	require.NoError(t, err)
	assert.False(t, ph.HasArrivals())
}

func TestGrammarErrors(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	for _, name := range []string{"PIP", "Px", "KP", "PK", "pv410P", "Pdiffx"} {
		_, err := New(name, m)
		assert.ErrorIs(t, err, ErrPhaseGrammar, name)
	}
	ph, err := New("KP", m, WithExpert(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"K", "P", "END"}, ph.Legs())
}

func TestShadowZone(t *testing.T) {
	m := newTauModel(t, "lvz-earth")
	hsz := m.SlownessModel().HighSlownessZones(velocity.PWave)
	require.NotEmpty(t, hsz)
	h := hsz[0]

	ph, err := New("P", m)
	require.NoError(t, err)
	curve := ph.Curve()
	idx := -1
	for i := 0; i+1 < len(curve); i++ {
		if curve[i].RayParam == curve[i+1].RayParam {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "no duplicated ray parameter")
	assert.Equal(t, h.RayParam, curve[idx].RayParam)
	assert.NotEqual(t, curve[idx].Dist, curve[idx+1].Dist)

	gap := (curve[idx].Dist + curve[idx+1].Dist) / 2
	arrivals, err := ph.Arrivals(gap)
	require.NoError(t, err)
	for _, a := range arrivals {
		assert.NotEqual(t, idx, a.RayParamIndex)
		assert.NotEqual(t, h.RayParam, a.RayParam)
	}
}

func TestHeadAndDiffractedWaves(t *testing.T) {
	m := newTauModel(t, "linear-earth")

	pn, err := New("Pn", m)
	require.NoError(t, err)
	pnP := m.Branch(velocity.PWave, m.MohoBranch()).MaxRayParam
	assert.Equal(t, pnP, pn.MinRayParam())
	assert.Equal(t, pnP, pn.MaxRayParam())
	assert.InDelta(t, 20, pn.MaxDistance()-pn.MinDistance(), 1e-9)

	arrivals, err := pn.PierceAndArrivals(pn.MinDistance() + 5)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, pnP, arrivals[0].RayParam)
	pierce := arrivals[0].Pierce
	last := pierce[len(pierce)-1]
	assert.Zero(t, last.Depth)
	assert.InDelta(t, arrivals[0].Dist, last.Dist, 1e-9)
	assert.InDelta(t, arrivals[0].Time, last.Time, 1e-9)

	pdiff, err := New("Pdiff", m)
	require.NoError(t, err)
	pdP := m.Branch(velocity.PWave, m.CMBBranch()-1).MinTurnRayParam
	assert.Equal(t, pdP, pdiff.MinRayParam())
	assert.InDelta(t, 60, pdiff.MaxDistance()-pdiff.MinDistance(), 1e-9)

	arrivals, err = pdiff.PierceAndArrivals(pdiff.MinDistance() + 10)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	var atCMB []PathPoint
	for _, pt := range arrivals[0].Pierce {
		if pt.Depth == 2889 {
			atCMB = append(atCMB, pt)
		}
	}
	require.Len(t, atCMB, 2)
	assert.InDelta(t, 10, atCMB[1].Dist-atCMB[0].Dist, 1e-9)

	opts := DefaultOptions()
	opts.MaxDiffraction = 30
	short, err := New("Pdiff", m, WithOptions(opts))
	require.NoError(t, err)
	assert.InDelta(t, 30, short.MaxDistance()-short.MinDistance(), 1e-9)
}

func TestRaypathsAreMonotonic(t *testing.T) {
	surface := newTauModel(t, "linear-earth")
	deep, err := surface.DepthCorrect(300)
	require.NoError(t, err)

	for _, tMod := range []*tau.Model{surface, deep} {
		for _, name := range []string{"P", "S", "PP", "PcP", "ScS", "PKP", "PKIKP", "PKiKP", "SKS", "pP", "sS", "PcS", "Pn", "Pdiff"} {
			ph, err := New(name, tMod)
			require.NoError(t, err, name)
			for _, d := range []float64{10, 45, 100, 150, 179} {
				arrivals, err := ph.PathsAndArrivals(d)
				require.NoError(t, err, "%s at %v", name, d)
				for _, a := range arrivals {
					path := a.Path
					require.NotEmpty(t, path)
					assert.Equal(t, tMod.SourceDepth(), path[0].Depth)
					for i := 1; i < len(path); i++ {
						if path[i].Dist < path[i-1].Dist {
							t.Errorf("%s at %v: path backtracks at %d", name, d, i)
						}
					}
					end := path[len(path)-1]
					assert.InDelta(t, a.Dist, end.Dist, 1e-6, "%s at %v", name, d)
					assert.InDelta(t, 0, end.Depth, 1e-9)
				}
			}
		}
	}
}

func TestPiercePoints(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	ph, err := New("PcP", m)
	require.NoError(t, err)

	arrivals, err := ph.PierceAndArrivals(30)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	depths := make([]float64, len(arrivals[0].Pierce))
	for i, pt := range arrivals[0].Pierce {
		depths[i] = pt.Depth
	}
	assert.Equal(t, []float64{0, 35, 2889, 35, 0}, depths)
	assert.InDelta(t, 30, arrivals[0].Pierce[4].Dist, 1e-6)
}

func TestBuriedSource(t *testing.T) {
	surface := newTauModel(t, "linear-earth")
	deep, err := surface.DepthCorrect(100)
	require.NoError(t, err)

	down, err := New("P", deep)
	require.NoError(t, err)
	up, err := New("p", deep)
	require.NoError(t, err)

	as, err := down.Arrivals(40)
	require.NoError(t, err)
	require.NotEmpty(t, as)
	assert.Equal(t, 100.0, as[0].SourceDepth)
	assert.Less(t, as[0].TakeoffAngle, 90.0)

	as, err = up.Arrivals(1)
	require.NoError(t, err)
	require.NotEmpty(t, as)
	assert.Greater(t, as[0].TakeoffAngle, 90.0)

	pP, err := New("pP", deep)
	require.NoError(t, err)
	p40, err := down.Arrivals(40)
	require.NoError(t, err)
	pp40, err := pP.Arrivals(40)
	require.NoError(t, err)
	require.NotEmpty(t, pp40)
	assert.Greater(t, pp40[0].Time, p40[0].Time)
}

func TestArrivalsSortedByTime(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	for _, name := range []string{"PP", "PKP", "SS"} {
		ph, err := New(name, m)
		require.NoError(t, err)
		for _, d := range []float64{60, 120, 170} {
			as, err := ph.Arrivals(d)
			require.NoError(t, err)
			assert.True(t, sort.SliceIsSorted(as, func(i, j int) bool { return as[i].Time < as[j].Time }), "%s at %v", name, d)
		}
	}
}

// linearEarthP integrates a P ray with parameter p through the crust and
// mantle of linear-earth directly from the velocity gradients, returning the
// surface-to-surface distance in degrees and time in seconds.
func linearEarthP(p float64) (dist, time float64) {
	const (
		radius = 6371.0
		moho   = 35.0
		cmb    = 2889.0
	)
	crustV := func(z float64) float64 { return 5.8 + 0.7*z/moho }
	mantleG := (13.69 - 8.04) / (cmb - moho)
	mantleV := func(z float64) float64 { return 8.04 + mantleG*(z-moho) }

	integrand := func(r, v float64) (float64, float64) {
		eta := r / v
		q := math.Sqrt(eta*eta - p*p)
		return p / (r * q), eta * eta / (r * q)
	}

	var d, tt float64
	d += quad.Fixed(func(r float64) float64 { x, _ := integrand(r, crustV(radius-r)); return x }, radius-moho, radius, 100, quad.Legendre{}, 0)
	tt += quad.Fixed(func(r float64) float64 { _, y := integrand(r, crustV(radius-r)); return y }, radius-moho, radius, 100, quad.Legendre{}, 0)

	// r = rt + u^2 removes the turning point singularity
	zt := (radius - p*(8.04-mantleG*moho)) / (1 + p*mantleG)
	rt := radius - zt
	umax := math.Sqrt(radius - moho - rt)
	d += quad.Fixed(func(u float64) float64 {
		r := rt + u*u
		x, _ := integrand(r, mantleV(radius-r))
		return 2 * u * x
	}, 0, umax, 200, quad.Legendre{}, 0)
	tt += quad.Fixed(func(u float64) float64 {
		r := rt + u*u
		_, y := integrand(r, mantleV(radius-r))
		return 2 * u * y
	}, 0, umax, 200, quad.Legendre{}, 0)

	return 2 * d * 180 / math.Pi, 2 * tt
}

func TestLinearEarthPAgainstQuadrature(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	ph, err := New("P", m)
	require.NoError(t, err)

	for _, deg := range []float64{20, 30, 60, 80} {
		arrivals, err := ph.Arrivals(deg)
		require.NoError(t, err)
		require.NotEmpty(t, arrivals, "P at %v", deg)
		for _, a := range arrivals {
			dist, time := linearEarthP(a.RayParam)
			assert.InDelta(t, deg, dist, 0.3, "distance for p=%v at %v", a.RayParam, deg)
			// carry the quadrature time along the curve to the requested distance
			want := time + a.RayParam*(deg-dist)*math.Pi/180
			assert.InDelta(t, want, a.Time, 0.5, "time at %v", deg)
		}
	}
}

func TestPiercePointsFromBuriedSources(t *testing.T) {
	surface := newTauModel(t, "linear-earth")

	for _, depth := range []float64{160, 200, 700} {
		tMod, err := surface.DepthCorrect(depth)
		require.NoError(t, err)
		for _, name := range []string{"P", "S", "PP", "S^35S", "PcP"} {
			ph, err := New(name, tMod, WithExpert(true))
			require.NoError(t, err, name)
			for _, d := range []float64{30, 60} {
				arrivals, err := ph.PierceAndArrivals(d)
				require.NoError(t, err, "%s at %v from %v km", name, d, depth)
				paths, err := ph.PathsAndArrivals(d)
				require.NoError(t, err, "%s at %v from %v km", name, d, depth)
				require.Len(t, paths, len(arrivals))

				for i, a := range arrivals {
					require.NotEmpty(t, a.Pierce)
					assert.Equal(t, depth, a.Pierce[0].Depth)
					end := a.Pierce[len(a.Pierce)-1]
					assert.InDelta(t, a.Dist, end.Dist, 1e-4, "%s at %v", name, d)
					assert.InDelta(t, a.Time, end.Time, 1e-3, "%s at %v", name, d)

					// the deepest pierce point is the deepest point of the path
					deepest := 0.0
					for _, pt := range a.Pierce {
						deepest = math.Max(deepest, pt.Depth)
					}
					pathDeepest := 0.0
					for _, pt := range paths[i].Path {
						pathDeepest = math.Max(pathDeepest, pt.Depth)
					}
					assert.InDelta(t, pathDeepest, deepest, 1e-9, "%s at %v", name, d)
				}
			}
		}
	}
}

func TestBranchTurningDepth(t *testing.T) {
	m := newTauModel(t, "linear-earth")
	sMod := m.SlownessModel()
	mantle := m.Branch(velocity.PWave, m.MohoBranch())

	i, err := sMod.LayerNumberBelow(1000, velocity.PWave)
	require.NoError(t, err)
	l := sMod.Layer(i, velocity.PWave)
	p := (l.TopP + l.BotP) / 2
	want, err := l.BullenDepthFor(p, sMod.Radius())
	require.NoError(t, err)

	got, err := mantle.TurningDepth(sMod, p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Greater(t, got, l.TopDepth)
	assert.Less(t, got, l.BotDepth)

	// a ray steep enough to pass the branch leaves through its bottom
	got, err = mantle.TurningDepth(sMod, 0)
	require.NoError(t, err)
	assert.Equal(t, mantle.BotDepth, got)
}
