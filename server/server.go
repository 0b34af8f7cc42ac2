// Package server - HTTP transport for road defect detection.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nvr-ai/intelliroad/config"
	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// shutdownTimeout bounds how long in-flight requests may take after a stop signal.
const shutdownTimeout = 30 * time.Second

// Server serves the detection API.
type Server struct {
	cfg      config.ServerConfig
	pipeline *pipeline.Pipeline
	decoder  images.Decoder
	router   chi.Router
	http     *http.Server
}

// New creates a server around a pipeline. Uploads are decoded with images.ServerChain.
func New(cfg config.ServerConfig, p *pipeline.Pipeline) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		decoder:  images.ServerChain(),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", s.handlePing)
	r.Post("/detect", s.handleDetect)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start listens until ctx is cancelled, then shuts down gracefully.
//
// Arguments:
//   - ctx: Cancel to stop the server.
//
// Returns:
//   - error: A listen error, or nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("🚀 starting detection server")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down detection server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
