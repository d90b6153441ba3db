// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP boundary of the merge service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vmerge/internal/api/middleware"
	"github.com/ManuGH/vmerge/internal/health"
	"github.com/ManuGH/vmerge/internal/merge"
)

// Merger runs one merge request.
type Merger interface {
	Merge(ctx context.Context, req merge.Request) (merge.Result, error)
}

// OutputRemover deletes a delivered output file.
type OutputRemover interface {
	RemoveOutput(path string) error
}

// Config configures the HTTP surface.
type Config struct {
	Version        string
	MaxUploadBytes int64
	// MemoryBytes is how much of a multipart upload is buffered in memory
	// before spilling to temporary files.
	MemoryBytes    int64
	RateLimit      middleware.RateLimitConfig
	RateLimitOn    bool
	TracingService string
	// Readiness, if set, serves /readyz.
	Readiness *health.Manager
}

const defaultMemoryBytes = 32 << 20

// Server wires handlers to their collaborators.
type Server struct {
	cfg     Config
	merger  Merger
	outputs OutputRemover
	logger  zerolog.Logger
	started time.Time
}

// New returns a Server.
func New(cfg Config, merger Merger, outputs OutputRemover, logger zerolog.Logger) *Server {
	if cfg.MemoryBytes <= 0 {
		cfg.MemoryBytes = defaultMemoryBytes
	}
	return &Server{
		cfg:     cfg,
		merger:  merger,
		outputs: outputs,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if s.cfg.Readiness != nil {
		r.Get("/readyz", s.cfg.Readiness.ServeReady)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitOn {
			r.With(middleware.RateLimit(s.cfg.RateLimit)).Post("/merge", s.handleMerge)
		} else {
			r.Post("/merge", s.handleMerge)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.cfg.Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}
