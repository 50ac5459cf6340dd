// Package phase interprets seismic phase names against a tau model. A Phase
// holds the branches the ray crosses and the resulting travel time curve,
// from which arrivals, pierce points and raypaths are extracted for a
// distance.
package phase

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/tau"
	"github.com/chrissnell/taup/pkg/velocity"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Phase is an interpreted phase for one tau model. It is immutable once
// built and safe for concurrent queries.
type Phase struct {
	name       string
	puristName string
	legs       []Leg
	tMod       *tau.Model
	opts       Options
	log        *zap.SugaredLogger

	segments []Segment
	minP     float64
	maxP     float64
	// curve, dist in radians
	rayParams []float64
	dist      []float64
	time      []float64

	// number of head or diffracted legs sharing the extra distance
	headCount   int
	critical    bool
	surfaceWave bool
}

// New interprets name against tMod. A phase that cannot exist for the
// model's source depth is not an error; it has no arrivals.
func New(name string, tMod *tau.Model, opts ...Option) (*Phase, error) {
	if tMod == nil {
		return nil, fmt.Errorf("%w: nil tau model", ErrPhaseGrammar)
	}
	s := settings{opts: DefaultOptions(), log: tMod.Logger()}
	for _, o := range opts {
		o(&s)
	}
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	legs, err := Parse(name, s.opts.Expert)
	if err != nil {
		return nil, err
	}

	ph := &Phase{name: name, legs: legs, tMod: tMod, opts: s.opts, log: s.log, minP: -1, maxP: -1}
	ph.puristName = ph.purist()

	if legs[0].Kind == KindSurfaceWave {
		ph.surfaceWaveCurve(legs[0].Velocity)
		return ph, nil
	}

	it, err := interpret(tMod, legs)
	if err != nil {
		return nil, err
	}
	if it.noRay {
		ph.log.Debugw("phase has no rays", "phase", name, "model", tMod.Name(), "source_depth", tMod.SourceDepth())
		return ph, nil
	}
	ph.segments, ph.minP, ph.maxP = it.segments, it.minP, it.maxP
	for _, l := range legs {
		if l.Kind == KindHead || l.Kind == KindDiff {
			ph.headCount++
		}
	}

	if ph.headCount > 0 {
		err = ph.criticalCurve()
	} else {
		err = ph.sumBranches()
	}
	if err != nil {
		return nil, err
	}
	ph.log.Debugw("built phase", "phase", name, "model", tMod.Name(), "source_depth", tMod.SourceDepth(),
		"branches", len(ph.segments), "samples", len(ph.rayParams), "min_p", ph.minP, "max_p", ph.maxP)
	return ph, nil
}

// sumBranches adds up the tabulated branches at every model ray parameter in
// [minP, maxP].
func (ph *Phase) sumBranches() error {
	all := ph.tMod.RayParams()
	lo := sort.Search(len(all), func(i int) bool { return all[i] <= ph.maxP })
	hi := sort.Search(len(all), func(i int) bool { return all[i] < ph.minP }) - 1
	if lo > hi {
		ph.clear()
		return nil
	}

	ph.rayParams = all[lo : hi+1]
	ph.dist = make([]float64, len(ph.rayParams))
	ph.time = make([]float64, len(ph.rayParams))
	for _, seg := range ph.segments {
		b := ph.tMod.Branch(seg.Wave, seg.Branch)
		floats.Add(ph.dist, b.Dist[lo:hi+1])
		floats.Add(ph.time, b.Time[lo:hi+1])
	}
	return ph.insertShadows()
}

// insertShadows duplicates the ray parameter of every high slowness zone the
// phase goes down into. The first copy grazes the top of the zone and the
// second turns below it; no ray lands between them.
func (ph *Phase) insertShadows() error {
	sMod := ph.tMod.SlownessModel()
	for _, w := range []velocity.WaveType{velocity.PWave, velocity.SWave} {
		for _, h := range sMod.HighSlownessZones(w) {
			if !(ph.minP < h.RayParam && h.RayParam < ph.maxP) || !ph.entersZone(h, w) {
				continue
			}
			idx := slices.Index(ph.rayParams, h.RayParam)
			if idx < 0 {
				continue
			}
			var above slowness.TimeDist
			for _, seg := range ph.segments {
				b := ph.tMod.Branch(seg.Wave, seg.Branch)
				if b.BotDepth > h.TopDepth {
					continue
				}
				td, err := b.CalcTimeDist(sMod, h.RayParam)
				if err != nil {
					return err
				}
				above = above.Add(td)
			}
			ph.rayParams = slices.Insert(ph.rayParams, idx, h.RayParam)
			ph.dist = slices.Insert(ph.dist, idx, above.Dist)
			ph.time = slices.Insert(ph.time, idx, above.Time)
		}
	}
	return nil
}

func (ph *Phase) entersZone(h slowness.DepthRange, w velocity.WaveType) bool {
	for _, seg := range ph.segments {
		b := ph.tMod.Branch(seg.Wave, seg.Branch)
		if seg.Down && seg.Wave == w && b.TopDepth <= h.TopDepth && h.TopDepth < b.BotDepth {
			return true
		}
	}
	return false
}

// criticalCurve builds the two-sample curve of a head or diffracted wave:
// the ray at the critical ray parameter, then the same ray after running the
// maximum angle along the boundary.
func (ph *Phase) criticalCurve() error {
	p := ph.minP
	td, err := ph.shoot(p)
	if err != nil {
		return err
	}
	extra := ph.opts.MaxRefraction
	for _, l := range ph.legs {
		if l.Kind == KindDiff {
			extra = ph.opts.MaxDiffraction
			break
		}
	}
	extra = extra * math.Pi / 180

	ph.critical = true
	ph.rayParams = []float64{p, p}
	ph.dist = []float64{td.Dist, td.Dist + extra}
	ph.time = []float64{td.Time, td.Time + p*extra}
	return nil
}

func (ph *Phase) surfaceWaveCurve(v float64) {
	r := ph.tMod.Radius()
	p := r / v
	ph.surfaceWave = true
	ph.minP, ph.maxP = p, p
	ph.rayParams = []float64{p, p}
	ph.dist = []float64{0, 2 * math.Pi}
	ph.time = []float64{0, 2 * math.Pi * p}
}

func (ph *Phase) clear() {
	ph.minP, ph.maxP = -1, -1
	ph.rayParams, ph.dist, ph.time = nil, nil, nil
}

// shoot integrates a ray with parameter p along every traversed branch.
func (ph *Phase) shoot(p float64) (slowness.TimeDist, error) {
	sMod := ph.tMod.SlownessModel()
	td := slowness.TimeDist{P: p}
	for _, seg := range ph.segments {
		b := ph.tMod.Branch(seg.Wave, seg.Branch)
		btd, err := b.CalcTimeDist(sMod, p)
		if err != nil {
			return td, err
		}
		td = td.Add(btd)
	}
	return td, nil
}

// purist is the name with numeric reflector depths replaced by the depth of
// the discontinuity actually used.
func (ph *Phase) purist() string {
	var sb strings.Builder
	for _, l := range ph.legs {
		if l.Kind == KindEnd {
			break
		}
		if l.Boundary != BoundaryDepth {
			sb.WriteString(l.Token)
			continue
		}
		depth := ph.tMod.Radius()
		if i := ph.tMod.ClosestBranchToDepth(l.Depth); i < ph.tMod.NumBranches() {
			depth = ph.tMod.Branch(velocity.PWave, i).TopDepth
		}
		sb.WriteByte(l.Token[0])
		sb.WriteString(strconv.FormatFloat(depth, 'f', -1, 64))
	}
	return sb.String()
}

// Name returns the phase name as given.
func (ph *Phase) Name() string { return ph.name }

// PuristName returns the name with reflector depths snapped to the model.
func (ph *Phase) PuristName() string { return ph.puristName }

// Legs returns the tokenized legs, ending with END.
func (ph *Phase) Legs() []string {
	out := make([]string, len(ph.legs))
	for i, l := range ph.legs {
		out[i] = l.Token
	}
	return out
}

// Segments returns the branch traversal.
func (ph *Phase) Segments() []Segment { return slices.Clone(ph.segments) }

func (ph *Phase) TauModel() *tau.Model { return ph.tMod }

func (ph *Phase) SourceDepth() float64 { return ph.tMod.SourceDepth() }

// MinRayParam and MaxRayParam bound the rays of the phase. Both are -1 when
// the phase does not exist for the source depth.
func (ph *Phase) MinRayParam() float64 { return ph.minP }
func (ph *Phase) MaxRayParam() float64 { return ph.maxP }

// HasArrivals reports whether any ray of the phase exists.
func (ph *Phase) HasArrivals() bool { return len(ph.rayParams) > 0 }

// MinDistance and MaxDistance give the range covered by the curve in
// degrees, including any wraps past 180.
func (ph *Phase) MinDistance() float64 {
	if !ph.HasArrivals() {
		return 0
	}
	return floats.Min(ph.dist) * 180 / math.Pi
}

func (ph *Phase) MaxDistance() float64 {
	if !ph.HasArrivals() {
		return 0
	}
	return floats.Max(ph.dist) * 180 / math.Pi
}

// CurvePoint is one sample of the travel time curve.
type CurvePoint struct {
	RayParam float64 `json:"ray_param"`
	Dist     float64 `json:"dist"`
	Time     float64 `json:"time"`
}

// Curve returns the travel time curve with distances in degrees.
func (ph *Phase) Curve() []CurvePoint {
	out := make([]CurvePoint, len(ph.rayParams))
	for i := range out {
		out[i] = CurvePoint{RayParam: ph.rayParams[i], Dist: ph.dist[i] * 180 / math.Pi, Time: ph.time[i]}
	}
	return out
}

func (ph *Phase) String() string {
	if !ph.HasArrivals() {
		return fmt.Sprintf("%s: no rays", ph.name)
	}
	return fmt.Sprintf("%s: p %.4f-%.4f, %.2f-%.2f deg, %d branches", ph.name, ph.minP, ph.maxP,
		ph.MinDistance(), ph.MaxDistance(), len(ph.segments))
}
