// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress middleware of the merge service.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/vmerge/internal/log"
)

// StackConfig configures the canonical middleware stack.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// RequestID first so a recovered panic can still be correlated.
	r.Use(RequestID)
	r.Use(Recoverer)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
}
