package velocity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, err := Lookup(name)
			require.NoError(t, err)
			assert.NoError(t, m.Validate())
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("mars")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
	}{
		{"no layers", func(m *Model) { m.Layers = nil }},
		{"zero radius", func(m *Model) { m.Radius = 0 }},
		{"gap", func(m *Model) { m.Layers[1].TopDepth = 40 }},
		{"zero thickness", func(m *Model) { m.Layers[0].BotDepth = 0 }},
		{"negative S", func(m *Model) { m.Layers[0].TopSVelocity = -1 }},
		{"partly fluid", func(m *Model) { m.Layers[1].BotSVelocity = 0 }},
		{"short", func(m *Model) { m.Layers[3].BotDepth = 6000 }},
		{"cmb below iocb", func(m *Model) { m.CMBDepth = 6000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := LinearEarth()
			tt.mutate(m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidModel)
		})
	}
}

func TestLayerNumbers(t *testing.T) {
	m := LinearEarth()

	tests := []struct {
		depth        float64
		above, below int
	}{
		{0, 0, 0},
		{10, 0, 0},
		{35, 0, 1},
		{2889, 1, 2},
		{6371, 3, 3},
	}
	for _, tt := range tests {
		above, err := m.LayerNumberAbove(tt.depth)
		require.NoError(t, err)
		below, err := m.LayerNumberBelow(tt.depth)
		require.NoError(t, err)
		assert.Equal(t, tt.above, above, "above %v", tt.depth)
		assert.Equal(t, tt.below, below, "below %v", tt.depth)
	}

	_, err := m.LayerNumberBelow(-1)
	assert.ErrorIs(t, err, ErrNoSuchLayer)
	_, err = m.LayerNumberAbove(7000)
	assert.ErrorIs(t, err, ErrNoSuchLayer)
}

func TestEvaluateAcrossDiscontinuity(t *testing.T) {
	m := LinearEarth()

	v, err := m.EvaluateAbove(35, PWave)
	require.NoError(t, err)
	assert.Equal(t, 6.5, v)

	v, err = m.EvaluateBelow(35, PWave)
	require.NoError(t, err)
	assert.Equal(t, 8.04, v)

	v, err = m.EvaluateBelow(3000, SWave)
	require.NoError(t, err)
	assert.Zero(t, v)

	assert.InDelta(t, 6.15, m.Layers[0].EvaluateAt(17.5, PWave), 1e-12)
}

func TestDisconDepths(t *testing.T) {
	assert.Equal(t, []float64{0, 35, 2889, 5153.9, 6371}, LinearEarth().DisconDepths())
	assert.Equal(t, []float64{0, 35, 150, 2889, 5153.9, 6371}, LVZEarth().DisconDepths())
	assert.True(t, LVZEarth().IsDiscontinuity(150))
	assert.False(t, LVZEarth().IsDiscontinuity(250))
}

func TestWaveType(t *testing.T) {
	assert.Equal(t, "P", PWave.String())
	assert.Equal(t, SWave, PWave.Other())
	assert.True(t, LinearEarth().Layers[2].IsFluid())
}
