package slowness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const radius = 6371.0

// constant velocity gives p = r/v, which the Bullen law with B = 1 matches
// exactly, so straight ray geometry can be checked.
func constantVelocityLayer(top, bot, v float64) Layer {
	return Layer{TopP: (radius - top) / v, TopDepth: top, BotP: (radius - bot) / v, BotDepth: bot}
}

func TestBullenRoundTrip(t *testing.T) {
	l := Layer{TopP: 800, TopDepth: 35, BotP: 700, BotDepth: 400}

	for _, p := range []float64{800, 780.5, 750, 700.1, 700} {
		d, err := l.BullenDepthFor(p, radius)
		require.NoError(t, err)
		back, err := l.EvaluateAt(d, radius)
		require.NoError(t, err)
		assert.InDelta(t, p, back, 1e-9, "p=%v", p)
	}

	_, err := l.BullenDepthFor(900, radius)
	assert.ErrorIs(t, err, ErrSlownessModel)
	_, err = l.EvaluateAt(500, radius)
	assert.ErrorIs(t, err, ErrSlownessModel)
}

func TestTimeDistStraightRay(t *testing.T) {
	const v = 10.0
	l := constantVelocityLayer(0, radius, v)

	// a ray leaving the surface at 30 degrees from vertical turns at
	// r = R sin 30 and its chord spans 2*(90-30) degrees
	p := radius * math.Sin(math.Pi/6) / v
	td, err := l.TurningTimeDist(p, radius)
	require.NoError(t, err)

	halfChord := radius * math.Cos(math.Pi/6)
	assert.InDelta(t, halfChord/v, td.Time, 1e-9)
	assert.InDelta(t, math.Pi/3, td.Dist, 1e-12)

	// vertical ray straight to the centre
	td, err = l.TimeDist(0, radius)
	require.NoError(t, err)
	assert.InDelta(t, radius/v, td.Time, 1e-9)
	assert.InDelta(t, math.Pi/2, td.Dist, 1e-12)
}

func TestTimeDistRejectsEvanescent(t *testing.T) {
	l := Layer{TopP: 800, TopDepth: 35, BotP: 700, BotDepth: 400}
	_, err := l.TimeDist(750, radius)
	assert.ErrorIs(t, err, ErrSlownessModel)

	zero := Layer{TopP: 900, TopDepth: 35, BotP: 800, BotDepth: 35}
	td, err := zero.TimeDist(850, radius)
	require.NoError(t, err)
	assert.Zero(t, td.Time)
	assert.Zero(t, td.Dist)
}

func TestTimeDistConstantSlowness(t *testing.T) {
	l := Layer{TopP: 700, TopDepth: 100, BotP: 700, BotDepth: 200}
	td, err := l.TimeDist(0, radius)
	require.NoError(t, err)
	// vertical ray: time is the integral of p/r dr
	assert.InDelta(t, 700*math.Log(6271.0/6171.0), td.Time, 1e-9)
	assert.Zero(t, td.Dist)
}

func TestTimeDistAdd(t *testing.T) {
	a := TimeDist{P: 5, Time: 1, Dist: 0.5, Depth: 10}
	b := TimeDist{P: 5, Time: 2, Dist: 0.25, Depth: 30}
	sum := a.Add(b)
	assert.Equal(t, TimeDist{P: 5, Time: 3, Dist: 0.75, Depth: 30}, sum)
	assert.Equal(t, TimeDist{P: 5, Time: 6, Dist: 1.5, Depth: 30}, sum.Scale(2))
}
