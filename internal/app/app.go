package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/taup/internal/server"
	"github.com/chrissnell/taup/pkg/config"
	"github.com/chrissnell/taup/pkg/taup"
	"go.uber.org/zap"
)

// App represents the travel-time service
type App struct {
	cfg    *config.ConfigData
	engine *taup.Engine
	logger *zap.SugaredLogger
}

// NewEngine builds an engine from the sampling and phase sections of cfg
func NewEngine(cfg *config.ConfigData, logger *zap.SugaredLogger) *taup.Engine {
	return taup.New(
		taup.WithSampling(cfg.Sampling.Options()),
		taup.WithPhaseOptions(cfg.Phases.Options()),
		taup.WithDefaultPhases(cfg.Phases.Defaults),
		taup.WithCacheSize(cfg.Server.DepthCacheSize),
		taup.WithLogger(logger),
	)
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		engine: NewEngine(cfg, logger),
		logger: logger,
	}
}

// Engine returns the engine the server queries
func (a *App) Engine() *taup.Engine {
	return a.engine
}

// Warm builds the surface tau model of the default model so the first
// request does not pay for it.
func (a *App) Warm() error {
	_, err := a.engine.TauModel(a.cfg.Model, 0)
	return err
}

// Run starts the HTTP server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Warm(); err != nil {
		return err
	}

	srv := server.New(ctx, &wg, a.engine, a.cfg.Server, a.cfg.Model, a.cfg.Phases.Expert, a.logger)
	if err := srv.Start(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for the server to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
