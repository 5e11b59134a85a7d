// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the update receiver over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/updatesink/internal/aggregator"
	"github.com/ManuGH/updatesink/internal/health"
	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes bounds request bodies when Deps.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// Processor persists one update batch.
type Processor interface {
	Process(ctx context.Context, payload string) (aggregator.Result, error)
}

// ArtifactStore holds the byte-dump artifact.
type ArtifactStore interface {
	Replace(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, bool, error)
}

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Processor Processor
	TextLog   sink.Sink
	JSONLog   sink.Sink
	Dump      ArtifactStore
	Health    *health.Manager

	MaxBodyBytes      int64
	RateLimitRPM      int
	TrustProxyHeaders bool
	// ServeMetrics mounts /metrics on the API router.
	ServeMetrics bool
}

// Server is the receiver's HTTP surface.
type Server struct {
	deps   Deps
	router chi.Router
}

// New validates deps and builds the router.
func New(deps Deps) (*Server, error) {
	if deps.Processor == nil {
		return nil, errors.New("api: processor is required")
	}
	if deps.TextLog == nil || deps.JSONLog == nil {
		return nil, errors.New("api: text and json sinks are required")
	}
	if deps.Dump == nil {
		return nil, errors.New("api: dump store is required")
	}
	if deps.Health == nil {
		return nil, errors.New("api: health manager is required")
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{deps: deps}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }
