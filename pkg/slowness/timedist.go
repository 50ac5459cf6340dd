package slowness

// TimeDist accumulates travel time and angular distance for one ray
// parameter. Dist is in radians and Time in seconds.
type TimeDist struct {
	P     float64 `json:"p"`
	Time  float64 `json:"time"`
	Dist  float64 `json:"dist"`
	Depth float64 `json:"depth"`
}

// Add returns the sum of td and o. Time and Dist accumulate, Depth is taken
// from o since it marks where the later segment ends.
func (td TimeDist) Add(o TimeDist) TimeDist {
	return TimeDist{
		P:     td.P,
		Time:  td.Time + o.Time,
		Dist:  td.Dist + o.Dist,
		Depth: o.Depth,
	}
}

// Scale multiplies Time and Dist by f, e.g. 2 for a down and up leg.
func (td TimeDist) Scale(f float64) TimeDist {
	td.Time *= f
	td.Dist *= f
	return td
}
