package taup

import (
	"sync"
	"testing"

	"github.com/chrissnell/taup/pkg/geo"
	"github.com/chrissnell/taup/pkg/phase"
	"github.com/chrissnell/taup/pkg/velocity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrivalsByDistance(t *testing.T) {
	e := New()
	res, err := e.Arrivals(Query{Model: "uniform", Phases: []string{"P", "P"}, Distance: 60})
	require.NoError(t, err)
	require.Len(t, res.Arrivals, 1)
	assert.InDelta(t, 637.1, res.Arrivals[0].Time, 1e-6)
	assert.Nil(t, res.Azimuth)
	assert.Empty(t, res.Arrivals[0].PierceGeo)
}

func TestArrivalsByLocation(t *testing.T) {
	e := New()
	event, station := geo.NewCoord(0, 0), geo.NewCoord(0, 60)
	res, err := e.Arrivals(Query{
		Model:   "uniform",
		Phases:  []string{"P"},
		Event:   &event,
		Station: &station,
		Mode:    ModePierce,
	})
	require.NoError(t, err)
	assert.InDelta(t, 60, res.Distance, 1e-9)
	require.NotNil(t, res.Azimuth)
	assert.InDelta(t, 90, *res.Azimuth, 1e-9)

	require.Len(t, res.Arrivals, 1)
	pts := res.Arrivals[0].PierceGeo
	require.NotEmpty(t, pts)
	assert.InDelta(t, 0, pts[0].Lon, 1e-9)
	last := pts[len(pts)-1]
	assert.InDelta(t, 0, last.Lat, 1e-6)
	assert.InDelta(t, 60, last.Lon, 1e-6)
	assert.Len(t, pts, len(res.Arrivals[0].Pierce))
}

func TestArrivalsSorted(t *testing.T) {
	e := New()
	res, err := e.Arrivals(Query{Model: "linear-earth", SourceDepth: 50, Distance: 40, Mode: ModePath})
	require.NoError(t, err)
	require.NotEmpty(t, res.Arrivals)
	for i := 1; i < len(res.Arrivals); i++ {
		assert.LessOrEqual(t, res.Arrivals[i-1].Time, res.Arrivals[i].Time)
	}
	for _, a := range res.Arrivals {
		assert.NotEmpty(t, a.Path, a.Name)
	}
}

func TestQueryErrors(t *testing.T) {
	e := New()
	_, err := e.Arrivals(Query{Phases: []string{"P"}, Distance: 10})
	assert.ErrorIs(t, err, ErrQuery)

	_, err = e.Arrivals(Query{Model: "nope", Phases: []string{"P"}, Distance: 10})
	assert.ErrorIs(t, err, velocity.ErrUnknownModel)

	bad := geo.NewCoord(100, 0)
	ok := geo.NewCoord(0, 0)
	_, err = e.Arrivals(Query{Model: "uniform", Event: &bad, Station: &ok})
	assert.ErrorIs(t, err, ErrQuery)

	_, err = e.Arrivals(Query{Model: "uniform", Phases: []string{"PIP"}, Distance: 10})
	assert.ErrorIs(t, err, phase.ErrPhaseGrammar)
}

func TestModelsAreMemoized(t *testing.T) {
	e := New(WithModel(velocity.Uniform("moon", 1737, 8, 4.6)))
	assert.Contains(t, e.Models(), "moon")
	assert.Contains(t, e.Models(), "linear-earth")

	a, err := e.TauModel("linear-earth", 100)
	require.NoError(t, err)
	b, err := e.TauModel("linear-earth", 100)
	require.NoError(t, err)
	assert.Same(t, a, b)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ph, err := e.Phase("P", "moon", 10)
			if assert.NoError(t, err) {
				assert.True(t, ph.HasArrivals())
			}
		}()
	}
	wg.Wait()

	e.Reset()
	c, err := e.TauModel("linear-earth", 100)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestDefaultPhases(t *testing.T) {
	e := New(WithDefaultPhases([]string{"P", "S"}))
	assert.Equal(t, []string{"P", "S"}, e.DefaultPhases())

	res, err := e.Arrivals(Query{Model: "uniform", Distance: 30})
	require.NoError(t, err)
	require.Len(t, res.Arrivals, 2)
	assert.Equal(t, "P", res.Arrivals[0].Name)
	assert.Equal(t, "S", res.Arrivals[1].Name)

	assert.Equal(t, DefaultPhases, New(WithDefaultPhases(nil)).DefaultPhases())

	_, err = e.Arrivals(Query{Model: "uniform", SourceDepth: -1, Distance: 30})
	assert.ErrorIs(t, err, ErrQuery)
}

func TestCacheSizeBoundsDepths(t *testing.T) {
	e := New(WithCacheSize(1))

	a, err := e.TauModel("uniform", 100)
	require.NoError(t, err)
	_, err = e.TauModel("uniform", 200)
	require.NoError(t, err)

	// 100 was evicted and is rebuilt identically
	b, err := e.TauModel("uniform", 100)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.RayParams(), b.RayParams())
	assert.Equal(t, a.SourceBranch(), b.SourceBranch())
}
