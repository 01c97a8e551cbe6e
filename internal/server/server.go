// Package server exposes the paylake HTTP API: the analytics query
// endpoint, the generation entry point, health, and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/query"
)

var log = logging.Component("server")

// Server is the paylake HTTP server.
type Server struct {
	cfg  *config.Config
	svc  *query.Service
	http *http.Server
}

// New creates a server and registers all routes.
func New(cfg *config.Config, svc *query.Service) *Server {
	s := &Server{cfg: cfg, svc: svc}

	s.http = &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called; a clean shutdown returns nil.
func (s *Server) Start() error {
	log.Info("http server listening", "addr", s.cfg.Server.Listen)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
