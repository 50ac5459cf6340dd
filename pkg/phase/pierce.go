package phase

import (
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/slowness"
)

// negligible contributions are legs a ray only touches
const negligible = 1e-12

// PierceAndArrivals returns the arrivals at degrees with the points where
// each ray crosses a branch boundary, turns or reflects.
func (ph *Phase) PierceAndArrivals(degrees float64) ([]Arrival, error) {
	arrivals, err := ph.Arrivals(degrees)
	if err != nil {
		return nil, err
	}
	for i := range arrivals {
		if arrivals[i].Pierce, err = ph.pierce(arrivals[i]); err != nil {
			return nil, err
		}
	}
	return arrivals, nil
}

// headExtra is the distance each head or diffracted leg runs along its
// boundary. The total beyond the critical ray is split evenly between them.
func (ph *Phase) headExtra(a Arrival) float64 {
	if ph.headCount == 0 {
		return 0
	}
	return (a.DistRadians() - ph.dist[0]) / float64(ph.headCount)
}

func (ph *Phase) pierce(a Arrival) ([]PathPoint, error) {
	p := a.RayParam
	src := ph.tMod.SourceDepth()
	if ph.surfaceWave {
		return []PathPoint{{RayParam: p, Depth: 0}, {RayParam: p, Time: a.Time, Dist: a.Dist, Depth: 0}}, nil
	}

	sMod := ph.tMod.SlownessModel()
	extra := ph.headExtra(a)
	pts := []PathPoint{{RayParam: p, Depth: src}}
	var cum slowness.TimeDist
	for _, seg := range ph.segments {
		b := ph.tMod.Branch(seg.Wave, seg.Branch)
		if p > b.MaxRayParam {
			continue
		}
		td, err := b.CalcTimeDist(sMod, p)
		if err != nil {
			return nil, err
		}

		depth := b.TopDepth
		if seg.Down {
			if depth, err = b.TurningDepth(sMod, p); err != nil {
				return nil, fmt.Errorf("pierce %s branch %d: %w", ph.name, seg.Branch, err)
			}
		}
		if td.Dist > negligible || td.Time > negligible {
			cum = cum.Add(td)
			pts = append(pts, PathPoint{RayParam: p, Time: cum.Time, Dist: cum.Dist * 180 / math.Pi, Depth: depth})
		}
		if seg.Head {
			cum.Dist += extra
			cum.Time += p * extra
			pts = append(pts, PathPoint{RayParam: p, Time: cum.Time, Dist: cum.Dist * 180 / math.Pi, Depth: depth})
		}
	}
	return pts, nil
}
