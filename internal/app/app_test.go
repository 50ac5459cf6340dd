package app

import (
	"context"
	"testing"
	"time"

	"github.com/chrissnell/taup/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEngineUsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Phases.Defaults = []string{"P", "S"}

	e := NewEngine(cfg, zap.NewNop().Sugar())
	assert.Equal(t, []string{"P", "S"}, e.DefaultPhases())

	cfg.Phases.Defaults = nil
	e = NewEngine(cfg, zap.NewNop().Sugar())
	assert.Contains(t, e.DefaultPhases(), "PKIKP")
}

func TestWarm(t *testing.T) {
	cfg := config.Default()
	cfg.Model = "uniform"
	require.NoError(t, New(cfg, zap.NewNop().Sugar()).Warm())

	cfg.Model = "nope"
	assert.Error(t, New(cfg, zap.NewNop().Sugar()).Warm())
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := config.Default()
	cfg.Model = "uniform"
	cfg.Server = config.ServerData{ListenAddr: "127.0.0.1", Port: 0}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- New(cfg, zap.NewNop().Sugar()).Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNewEngineCacheSize(t *testing.T) {
	cfg := config.Default()
	cfg.Server.DepthCacheSize = 1
	e := NewEngine(cfg, zap.NewNop().Sugar())

	a, err := e.TauModel("uniform", 50)
	require.NoError(t, err)
	_, err = e.TauModel("uniform", 60)
	require.NoError(t, err)
	b, err := e.TauModel("uniform", 50)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
