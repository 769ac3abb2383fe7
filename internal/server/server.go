// Package server exposes the orchestrator over HTTP.
//
// Routes are registered on a gin engine so they can be served directly or
// mounted by tests through httptest. Suite configurations are accepted in
// the same YAML or JSON format the CLI reads from files.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suitepilot/suitepilot/internal/loader"
	"github.com/suitepilot/suitepilot/internal/logging"
	"github.com/suitepilot/suitepilot/internal/orchestrator"
)

// DefaultShutdownTimeout bounds how long Run waits for in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Server serves the control API for one orchestrator.
type Server struct {
	orch            *orchestrator.Orchestrator
	loader          *loader.Loader
	logger          *logging.Logger
	router          *gin.Engine
	metrics         http.Handler
	addr            string
	mode            string
	shutdownTimeout time.Duration
	started         time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address.
func WithAddress(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithMode sets the gin mode ("debug", "release" or "test").
func WithMode(mode string) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLoader sets the loader used to parse submitted configurations.
func WithLoader(l *loader.Loader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New builds a Server for orch. A loader with built-in defaults is created
// when none is supplied.
func New(orch *orchestrator.Orchestrator, opts ...Option) (*Server, error) {
	s := &Server{
		orch:            orch,
		logger:          logging.NopLogger(),
		addr:            ":8080",
		mode:            gin.ReleaseMode,
		shutdownTimeout: DefaultShutdownTimeout,
		started:         time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")

	if s.loader == nil {
		l, err := loader.New()
		if err != nil {
			return nil, err
		}
		s.loader = l
	}

	gin.SetMode(s.mode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.router = router
	s.RegisterRoutes(router)
	return s, nil
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
