package phase

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	maxShootIter   = 60
	shootTolerance = 1e-11 // radians
)

// normalizeDistance folds degrees onto [0, 180].
func normalizeDistance(degrees float64) float64 {
	d := math.Mod(math.Abs(degrees), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Arrivals returns every ray of the phase reaching degrees, including those
// travelling the long way round and those wrapping the planet, sorted by
// time.
func (ph *Phase) Arrivals(degrees float64) ([]Arrival, error) {
	if !ph.HasArrivals() || math.IsNaN(degrees) {
		return nil, nil
	}
	d := normalizeDistance(degrees)
	maxDist := floats.Max(ph.dist)

	var out []Arrival
	for n := 0; (float64(n)*360+d)*math.Pi/180 <= maxDist; n++ {
		targets := []float64{float64(n)*360 + d}
		if d != 0 && d != 180 {
			targets = append(targets, float64(n+1)*360-d)
		}
		for _, target := range targets {
			if target*math.Pi/180 > maxDist {
				continue
			}
			as, err := ph.search(target, degrees)
			if err != nil {
				return nil, err
			}
			out = append(out, as...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// search scans the curve for brackets containing targetDeg.
func (ph *Phase) search(targetDeg, searchDeg float64) ([]Arrival, error) {
	target := targetDeg * math.Pi / 180
	var out []Arrival
	last := len(ph.rayParams) - 1
	for i := 0; i < last; i++ {
		d0, d1 := ph.dist[i], ph.dist[i+1]
		// equal ray parameters either side of a shadow zone
		if ph.rayParams[i] == ph.rayParams[i+1] && len(ph.rayParams) > 2 {
			continue
		}
		if (target-d0)*(target-d1) > 0 {
			continue
		}
		if target == d1 && i+1 < last {
			continue
		}

		p, t := ph.interpolate(i, target)
		if ph.opts.Refine && !ph.critical && !ph.surfaceWave {
			var err error
			if p, t, err = ph.refine(i, target, p, t); err != nil {
				return nil, err
			}
		}
		a := Arrival{
			Name:          ph.name,
			PuristName:    ph.puristName,
			Time:          t,
			Dist:          targetDeg,
			SearchDist:    searchDeg,
			RayParam:      p,
			SourceDepth:   ph.tMod.SourceDepth(),
			RayParamIndex: i,
		}
		var err error
		if a.TakeoffAngle, a.IncidentAngle, err = ph.angles(p); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// interpolate is linear in ray parameter; time is extrapolated from the
// nearer sample using dT/dX = p.
func (ph *Phase) interpolate(i int, target float64) (p, t float64) {
	d0, d1 := ph.dist[i], ph.dist[i+1]
	p0, p1 := ph.rayParams[i], ph.rayParams[i+1]
	p = p0
	if d1 != d0 {
		p = p0 + (target-d0)*(p1-p0)/(d1-d0)
	}
	if math.Abs(target-d0) <= math.Abs(target-d1) {
		return p, ph.time[i] + p*(target-d0)
	}
	return p, ph.time[i+1] + p*(target-d1)
}

// refine solves dist(p) = target within the bracket by Illinois regula
// falsi, shooting each trial ray through the branches.
func (ph *Phase) refine(i int, target, p, t float64) (float64, float64, error) {
	a, b := ph.rayParams[i], ph.rayParams[i+1]
	fa, fb := ph.dist[i]-target, ph.dist[i+1]-target
	switch {
	case fa == 0:
		return a, ph.time[i], nil
	case fb == 0:
		return b, ph.time[i+1], nil
	case fa == fb:
		return p, t, nil
	}

	for k := 0; k < maxShootIter; k++ {
		c := b - fb*(b-a)/(fb-fa)
		td, err := ph.shoot(c)
		if err != nil {
			return 0, 0, err
		}
		fc := td.Dist - target
		p, t = c, td.Time
		if math.Abs(fc) < shootTolerance {
			break
		}
		if fc*fb < 0 {
			a, fa = b, fb
		} else {
			fa /= 2
		}
		b, fb = c, fc
	}
	return p, t, nil
}

// angles applies Snell's law at the source and the receiver.
func (ph *Phase) angles(p float64) (takeoff, incident float64, err error) {
	if ph.surfaceWave {
		return 90, 90, nil
	}
	sMod := ph.tMod.SlownessModel()
	r := ph.tMod.Radius()
	src := ph.tMod.SourceDepth()

	first := ph.legs[0]
	w, _ := first.Wave()
	up := first.Kind == KindUp || first.Kind == KindOuterCoreUp
	var v float64
	if up {
		v, err = sMod.VelocityAbove(src, w)
	} else {
		v, err = sMod.VelocityBelow(src, w)
	}
	if err != nil {
		return 0, 0, err
	}
	takeoff = asinDeg(v * p / (r - src))
	if up {
		takeoff = 180 - takeoff
	}

	lw, _ := ph.legs[len(ph.legs)-2].Wave()
	vr, err := sMod.VelocityBelow(0, lw)
	if err != nil {
		return 0, 0, err
	}
	return takeoff, asinDeg(vr * p / r), nil
}

func asinDeg(x float64) float64 {
	return math.Asin(math.Max(-1, math.Min(1, x))) * 180 / math.Pi
}
