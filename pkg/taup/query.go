package taup

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/taup/pkg/geo"
	"github.com/chrissnell/taup/pkg/phase"
	"github.com/soniakeys/unit"
)

// Mode selects what each arrival carries besides its time.
type Mode int

const (
	ModeArrivals Mode = iota
	ModePierce
	ModePath
)

// Query asks for arrivals at one distance. Distance is in degrees unless
// both Event and Station are set, in which case it is derived from them and
// ray points get coordinates.
type Query struct {
	Model       string
	SourceDepth float64
	Phases      []string
	Distance    float64
	Event       *geo.Coord
	Station     *geo.Coord
	Mode        Mode
}

// GeoPoint is a ray point placed on the map.
type GeoPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Depth float64 `json:"depth"`
	Time  float64 `json:"time"`
}

// Arrival is a phase arrival with optional map coordinates for its pierce
// points or path.
type Arrival struct {
	phase.Arrival
	PierceGeo []GeoPoint `json:"pierce_geo,omitempty"`
	PathGeo   []GeoPoint `json:"path_geo,omitempty"`
}

type Result struct {
	Model       string    `json:"model"`
	SourceDepth float64   `json:"source_depth"`
	Distance    float64   `json:"distance"`
	Azimuth     *float64  `json:"azimuth,omitempty"`
	Arrivals    []Arrival `json:"arrivals"`
}

// Arrivals answers q with every arrival of every phase, sorted by time.
func (e *Engine) Arrivals(q Query) (*Result, error) {
	if q.Model == "" {
		return nil, fmt.Errorf("%w: no model", ErrQuery)
	}
	if !(q.SourceDepth >= 0) || math.IsInf(q.SourceDepth, 0) {
		return nil, fmt.Errorf("%w: source depth %v", ErrQuery, q.SourceDepth)
	}
	names := q.Phases
	if len(names) == 0 {
		names = e.defaults
	}

	res := &Result{Model: q.Model, SourceDepth: q.SourceDepth, Distance: q.Distance}
	var az unit.Angle
	located := q.Event != nil && q.Station != nil
	if located {
		for _, c := range []*geo.Coord{q.Event, q.Station} {
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrQuery, err)
			}
		}
		res.Distance = geo.Distance(*q.Event, *q.Station).Deg()
		az = geo.Azimuth(*q.Event, *q.Station)
		azDeg := az.Deg()
		res.Azimuth = &azDeg
	}
	if math.IsNaN(res.Distance) || math.IsInf(res.Distance, 0) {
		return nil, fmt.Errorf("%w: distance %v", ErrQuery, res.Distance)
	}

	phases, err := e.Phases(names, q.Model, q.SourceDepth)
	if err != nil {
		return nil, err
	}
	for _, ph := range phases {
		var as []phase.Arrival
		switch q.Mode {
		case ModePierce:
			as, err = ph.PierceAndArrivals(res.Distance)
		case ModePath:
			as, err = ph.PathsAndArrivals(res.Distance)
		default:
			as, err = ph.Arrivals(res.Distance)
		}
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", ph.Name(), err)
		}
		for _, a := range as {
			out := Arrival{Arrival: a}
			if located {
				out.PierceGeo = place(*q.Event, az, a, a.Pierce)
				out.PathGeo = place(*q.Event, az, a, a.Path)
			}
			res.Arrivals = append(res.Arrivals, out)
		}
	}
	sort.SliceStable(res.Arrivals, func(i, j int) bool { return res.Arrivals[i].Time < res.Arrivals[j].Time })
	return res, nil
}

// place maps ray points onto the great circle from the event. Arrivals that
// go the long way round leave in the opposite direction.
func place(event geo.Coord, az unit.Angle, a phase.Arrival, pts []phase.PathPoint) []GeoPoint {
	if len(pts) == 0 {
		return nil
	}
	if math.Mod(a.Dist, 360) > 180 {
		az += math.Pi
	}
	out := make([]GeoPoint, len(pts))
	for i, pt := range pts {
		c := geo.Destination(event, az, unit.AngleFromDeg(pt.Dist))
		out[i] = GeoPoint{Lat: c.Lat.Deg(), Lon: c.Lon.Deg(), Depth: pt.Depth, Time: pt.Time}
	}
	return out
}
