// Package server provides the HTTP boundary: ingest requests, job
// polling, orchestrated queries, and health.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vidsage/internal/agent"
	"vidsage/internal/index"
	"vidsage/internal/logging"
	"vidsage/internal/metrics"
	"vidsage/internal/retrieval"
)

// Server is the HTTP server for the vidsage API.
type Server struct {
	orchestrator *agent.Orchestrator
	worker       *index.Worker
	tracker      *index.Tracker
	retriever    *retrieval.Retriever
	metrics      *metrics.Metrics
	log          *zap.SugaredLogger
	server       *http.Server
}

// New creates a server with the given dependencies.
func New(o *agent.Orchestrator, w *index.Worker, t *index.Tracker, r *retrieval.Retriever, m *metrics.Metrics) *Server {
	return &Server{
		orchestrator: o,
		worker:       w,
		tracker:      t,
		retriever:    r,
		metrics:      m,
		log:          logging.Get(logging.CategoryServer),
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/ingest", s.handleIngest)
	r.Get("/api/jobs/{source_id}", s.handleJobPoll)
	r.Post("/api/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	return r
}

// Start serves the API on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infow("server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and waits for in-flight
// ingestion to finish.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.worker.Wait()
	return nil
}
