// Package rest exposes the aggregation engine over HTTP. It is a thin shell:
// validation, decimal parsing, slippage arithmetic and JSON shaping; all
// quoting happens in the application layer.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestDeadline bounds one quote request end to end. Outstanding chain
// reads are abandoned when it expires.
const requestDeadline = 10 * time.Second

// Config holds the REST server settings.
type Config struct {
	Port               int
	BasePath           string
	RateLimitPerMinute int
}

// Server is the HTTP shell around the aggregator.
type Server struct {
	agg    aggregatorPort
	logger *zap.Logger
	cfg    Config

	httpServer *http.Server
}

// NewServer builds the router and handlers. Start must be called to listen.
func NewServer(cfg Config, agg aggregatorPort, log *zap.Logger) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = "/api/aggregator"
	}

	s := &Server{
		agg:    agg,
		logger: log,
		cfg:    cfg,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(s.rateLimiter(cfg.RateLimitPerMinute))
	}
	r.Use(chimw.Timeout(requestDeadline))

	r.Route(cfg.BasePath, func(r chi.Router) {
		r.Post("/quote", s.handleQuote)
		r.Post("/build-tx", s.handleBuildTx)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("rest server listening", zap.Int("port", s.cfg.Port), zap.String("base_path", s.cfg.BasePath))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
