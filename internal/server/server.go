// Package server provides the HTTP API for Inkdex.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/config"
	"github.com/inkhaven/inkdex/internal/corpus"
)

// Server is the HTTP server for the Inkdex API.
type Server struct {
	corpus *corpus.Corpus
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(c *corpus.Corpus, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		corpus: c,
		config: cfg,
		logger: logger,
	}
}

// Router builds the HTTP routes. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/index/{kind}", s.handleIndex)
	r.Post("/api/v1/search/{kind}", s.handleSearch)
	r.Delete("/api/v1/index/{kind}/{id}", s.handleDelete)
	r.Delete("/api/v1/projects/{projectID}", s.handleDeleteProject)
	r.Get("/api/v1/schema/{kind}", s.handleSchema)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
