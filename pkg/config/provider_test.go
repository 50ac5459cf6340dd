package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	s := c.Sampling.Options()
	assert.Equal(t, 0.1, s.MinDeltaP)
	assert.Equal(t, 11.0, s.MaxDeltaP)
	assert.Equal(t, 115.0, s.MaxDepthInterval)
	assert.Equal(t, 2.5, s.MaxRangeInterval)
	assert.Equal(t, 0.05, s.MaxInterpError)
	assert.Equal(t, 1e-16, s.SlownessTolerance)
	assert.True(t, s.AllowInnerCoreS)

	p := c.Phases.Options()
	assert.False(t, p.Expert)
	assert.Equal(t, 60.0, p.MaxDiffraction)
	assert.Equal(t, 20.0, p.MaxRefraction)
	assert.True(t, p.Refine)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConfigData)
	}{
		{"negative range step", func(c *ConfigData) { c.Sampling.MaxRangeInterval = -1 }},
		{"max below min delta p", func(c *ConfigData) { c.Sampling.MaxDeltaP = 0.01 }},
		{"negative diffraction", func(c *ConfigData) { c.Phases.MaxDiffraction = -5 }},
		{"port out of range", func(c *ConfigData) { c.Server.Port = 70000 }},
		{"negative cache size", func(c *ConfigData) { c.Server.DepthCacheSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestYAMLProvider(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "taup.yaml")

	doc := `
model: lvz-earth
sampling:
  max-range-interval: 1.5
  allow-inner-core-s: false
phases:
  expert: true
  defaults: [P, S, PKIKP]
server:
  port: 9090
  depth-cache-size: 8
`
	require.NoError(t, os.WriteFile(filename, []byte(doc), 0o644))

	provider := NewYAMLProvider(filename)
	defer provider.Close()
	assert.True(t, provider.IsReadOnly())

	c, err := provider.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "lvz-earth", c.Model)
	assert.Equal(t, 1.5, c.Sampling.MaxRangeInterval)
	assert.False(t, c.Sampling.AllowInnerCoreS)
	assert.Equal(t, 11.0, c.Sampling.MaxDeltaP, "absent keys keep defaults")
	assert.True(t, c.Phases.Expert)
	assert.True(t, c.Phases.Refine)
	assert.Equal(t, []string{"P", "S", "PKIKP"}, c.Phases.Defaults)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 8, c.Server.DepthCacheSize)
	assert.Equal(t, "127.0.0.1", c.Server.ListenAddr)

	server, err := provider.GetServer()
	require.NoError(t, err)
	assert.Equal(t, 9090, server.Port)
}

func TestYAMLProviderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewYAMLProvider(filepath.Join(dir, "missing.yaml")).LoadConfig()
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sampling:\n  min-delta-p: -1\n"), 0o644))
	_, err = NewYAMLProvider(bad).LoadConfig()
	assert.Error(t, err)

	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("sampling: [1, 2\n"), 0o644))
	_, err = NewYAMLProvider(garbled).GetSampling()
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "taup.yaml")

	want := Default()
	want.Model = "uniform"
	want.Phases.MaxRefraction = 15
	want.Phases.Defaults = []string{"Pn", "Sn"}
	require.NoError(t, WriteYAML(filename, want))

	got, err := NewYAMLProvider(filename).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func newSQLiteProvider(t *testing.T) *SQLiteProvider {
	t.Helper()
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "taup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { provider.Close() })
	require.NoError(t, provider.InitSchema())
	return provider
}

func TestSQLiteProviderEmpty(t *testing.T) {
	provider := newSQLiteProvider(t)
	assert.False(t, provider.IsReadOnly())

	c, err := provider.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	provider := newSQLiteProvider(t)

	want := Default()
	want.Model = "lvz-earth"
	want.Sampling.MaxInterpError = 0.01
	want.Sampling.AllowInnerCoreS = false
	want.Phases.Expert = true
	want.Phases.Refine = false
	want.Phases.Defaults = []string{"P", "PcP", "PKiKP"}
	want.Server = ServerData{ListenAddr: "0.0.0.0", Port: 8081, DepthCacheSize: 16}
	require.NoError(t, provider.SaveConfig(want))

	got, err := provider.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving again replaces rather than appends
	want.Phases.Defaults = []string{"S"}
	require.NoError(t, provider.SaveConfig(want))
	phases, err := provider.GetPhases()
	require.NoError(t, err)
	assert.Equal(t, []string{"S"}, phases.Defaults)

	require.NoError(t, provider.SetModel("uniform"))
	got, err = provider.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "uniform", got.Model)
	assert.Equal(t, 0.01, got.Sampling.MaxInterpError)
}

func TestSQLiteProviderRejectsInvalid(t *testing.T) {
	provider := newSQLiteProvider(t)

	c := Default()
	c.Sampling.MinDeltaP = 0
	assert.ErrorIs(t, provider.SaveConfig(c), slowness.ErrSlownessModel)

	got, err := provider.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), got, "nothing written")
}

func TestLoad(t *testing.T) {
	c, err := Load("", "yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = Load("taup.conf", "toml")
	assert.ErrorIs(t, err, ErrConfig)

	filename := filepath.Join(t.TempDir(), "taup.yaml")
	want := Default()
	want.Model = "lvz-earth"
	require.NoError(t, WriteYAML(filename, want))
	c, err = Load(filename, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "lvz-earth", c.Model)

	dbPath := filepath.Join(t.TempDir(), "taup.db")
	provider, err := NewSQLiteProvider(dbPath)
	require.NoError(t, err)
	require.NoError(t, provider.InitSchema())
	require.NoError(t, provider.SaveConfig(want))
	require.NoError(t, provider.Close())

	c, err = Load(dbPath, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, want, c)
}

func TestSQLiteSchemaVersion(t *testing.T) {
	provider := newSQLiteProvider(t)

	version, err := provider.Migrator(nil).GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	// InitSchema is idempotent
	require.NoError(t, provider.InitSchema())
	require.NoError(t, provider.SaveConfig(Default()))
}
