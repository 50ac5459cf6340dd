package phase

import (
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/slowness"
)

// PathsAndArrivals returns the arrivals at degrees with the full raypath of
// each, one point per slowness sample crossed.
func (ph *Phase) PathsAndArrivals(degrees float64) ([]Arrival, error) {
	arrivals, err := ph.Arrivals(degrees)
	if err != nil {
		return nil, err
	}
	for i := range arrivals {
		if arrivals[i].Path, err = ph.path(arrivals[i]); err != nil {
			return nil, err
		}
	}
	return arrivals, nil
}

// surfaceStep is the spacing of surface wave path points in degrees.
const surfaceStep = 1.0

func (ph *Phase) path(a Arrival) ([]PathPoint, error) {
	p := a.RayParam
	if ph.surfaceWave {
		var pts []PathPoint
		for d := 0.0; d < a.Dist; d += surfaceStep {
			pts = append(pts, PathPoint{RayParam: p, Time: a.Time * d / a.Dist, Dist: d})
		}
		return append(pts, PathPoint{RayParam: p, Time: a.Time, Dist: a.Dist}), nil
	}

	sMod := ph.tMod.SlownessModel()
	extra := ph.headExtra(a)
	pts := []PathPoint{{RayParam: p, Depth: ph.tMod.SourceDepth()}}
	var cum slowness.TimeDist
	for _, seg := range ph.segments {
		b := ph.tMod.Branch(seg.Wave, seg.Branch)
		incs, err := b.Path(sMod, p, seg.Down)
		if err != nil {
			return nil, err
		}
		for _, inc := range incs {
			cum = cum.Add(inc)
			pts = append(pts, PathPoint{RayParam: p, Time: cum.Time, Dist: cum.Dist * 180 / math.Pi, Depth: inc.Depth})
		}
		if seg.Head {
			cum.Dist += extra
			cum.Time += p * extra
			last := pts[len(pts)-1]
			pts = append(pts, PathPoint{RayParam: p, Time: cum.Time, Dist: cum.Dist * 180 / math.Pi, Depth: last.Depth})
		}
	}

	for i := 1; i < len(pts); i++ {
		if pts[i].Dist < pts[i-1].Dist {
			return nil, fmt.Errorf("%w: %s at %.4f deg: sample %d at %.6f deg follows %.6f deg",
				ErrRayPath, ph.name, a.SearchDist, i, pts[i].Dist, pts[i-1].Dist)
		}
	}
	return pts, nil
}
