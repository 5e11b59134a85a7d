// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/ManuGH/updatesink/internal/api/middleware"
	"github.com/ManuGH/updatesink/internal/api/problem"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PathUpdate     = "/update"
	PathLegacy     = "/"
	PathUpdateText = "/update/text"
	PathUpdateJSON = "/update/json"
	PathDump       = "/dump"
	PathHealth     = "/healthz"
	PathReady      = "/readyz"
	PathMetrics    = "/metrics"
)

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
	})

	r.Get(PathHealth, s.deps.Health.ServeHealth)
	r.Get(PathReady, s.deps.Health.ServeReady)
	if s.deps.ServeMetrics {
		r.Handle(PathMetrics, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.IngestRateLimit(s.deps.RateLimitRPM, s.deps.TrustProxyHeaders))
		r.Post(PathUpdate, s.handleUpdate)
		r.Post(PathLegacy, s.handleUpdate)
		r.Post(PathDump, s.handleDumpWrite)
	})

	r.Get(PathUpdateText, s.handleReadBack(s.deps.TextLog, "text/plain; charset=utf-8"))
	r.Get(PathUpdateJSON, s.handleReadBack(s.deps.JSONLog, "application/json"))
	r.Get(PathDump, s.handleDumpRead)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", problem.CodeNotFound, "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed",
			problem.CodeBadRequest, r.Method+" is not supported on this path", nil)
	})
	return r
}
