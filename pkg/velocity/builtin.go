package velocity

import (
	"fmt"
	"math"
	"sort"
)

const earthRadius = 6371.0

// Uniform returns a single-layer sphere with constant velocities.
func Uniform(name string, radius, vp, vs float64) *Model {
	return &Model{
		Name:      name,
		Radius:    radius,
		MohoDepth: 0,
		CMBDepth:  radius,
		IOCBDepth: radius,
		Layers: []Layer{
			{TopDepth: 0, BotDepth: radius, TopPVelocity: vp, BotPVelocity: vp, TopSVelocity: vs, BotSVelocity: vs},
		},
	}
}

// LinearEarth is a four-shell Earth with linear velocity gradients: crust,
// mantle, fluid outer core and solid inner core.
func LinearEarth() *Model {
	return &Model{
		Name:      "linear-earth",
		Radius:    earthRadius,
		MohoDepth: 35,
		CMBDepth:  2889,
		IOCBDepth: 5153.9,
		Layers: []Layer{
			{0, 35, 5.8, 6.5, 3.36, 3.75},
			{35, 2889, 8.04, 13.69, 4.47, 7.30},
			{2889, 5153.9, 8.0, 10.3, 0, 0},
			{5153.9, earthRadius, 11.0, 11.26, 3.5, 3.67},
		},
	}
}

// LVZEarth is LinearEarth with an upper mantle low velocity zone between
// 150 and 250 km.
func LVZEarth() *Model {
	return &Model{
		Name:      "lvz-earth",
		Radius:    earthRadius,
		MohoDepth: 35,
		CMBDepth:  2889,
		IOCBDepth: 5153.9,
		Layers: []Layer{
			{0, 35, 5.8, 6.5, 3.36, 3.75},
			{35, 150, 8.04, 8.2, 4.47, 4.55},
			{150, 250, 7.6, 8.6, 4.2, 4.75},
			{250, 2889, 8.6, 13.69, 4.75, 7.30},
			{2889, 5153.9, 8.0, 10.3, 0, 0},
			{5153.9, earthRadius, 11.0, 11.26, 3.5, 3.67},
		},
	}
}

var builtins = map[string]func() *Model{
	"uniform": func() *Model {
		return Uniform("uniform", earthRadius, 10, 10/math.Sqrt(3))
	},
	"linear-earth": LinearEarth,
	"lvz-earth":    LVZEarth,
}

// Lookup returns a fresh copy of a built-in model.
func Lookup(name string) (*Model, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return f(), nil
}

// Names lists the built-in models in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
