// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

// Wiring errors, returned before anything is bound.
var (
	ErrMissingLogger     = errors.New("logger is required")
	ErrMissingAPIHandler = errors.New("API handler is required")
	ErrMissingManager    = errors.New("manager is required")
)

// Lifecycle errors.
var (
	// ErrServerStartFailed wraps the bind error of the API or metrics listener.
	ErrServerStartFailed = errors.New("server failed to start")
	// ErrManagerNotStarted is returned by Shutdown before Start.
	ErrManagerNotStarted = errors.New("manager not started")
)
