// Package server exposes the travel-time engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/taup/internal/log"
	"github.com/chrissnell/taup/pkg/config"
	"github.com/chrissnell/taup/pkg/responseformat"
	"github.com/chrissnell/taup/pkg/taup"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server answers arrival, pierce point and raypath queries
type Server struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	engine    *taup.Engine
	model     string
	expert    bool
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
	Server    http.Server
}

// New creates a server for engine. model is used when a request names none
// and expert controls which phase names /phases/validate accepts.
func New(ctx context.Context, wg *sync.WaitGroup, engine *taup.Engine, cfg config.ServerData, model string, expert bool, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		ctx:       ctx,
		wg:        wg,
		engine:    engine,
		model:     model,
		expert:    expert,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
	s.Server.Addr = fmt.Sprintf("%v:%v", cfg.ListenAddr, cfg.Port)
	s.Server.Handler = s.Router()
	s.Server.ReadHeaderTimeout = 10 * time.Second
	return s
}

// Start runs the HTTP listener until the context is cancelled
func (s *Server) Start() error {
	s.logger.Infow("starting travel-time server", "addr", s.Server.Addr, "model", s.model)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		if err := s.Server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Errorf("HTTP server error: %v", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		s.logger.Info("shutting down the HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Router configures the HTTP router with all endpoints
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)

	router.HandleFunc("/arrivals", s.queryHandler(taup.ModeArrivals)).Methods(http.MethodGet)
	router.HandleFunc("/pierce", s.queryHandler(taup.ModePierce)).Methods(http.MethodGet)
	router.HandleFunc("/path", s.queryHandler(taup.ModePath)).Methods(http.MethodGet)
	router.HandleFunc("/phases/validate", s.validatePhases).Methods(http.MethodGet)
	router.HandleFunc("/models", s.listModels).Methods(http.MethodGet)

	return router
}
