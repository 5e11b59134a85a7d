// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires the receiver components and owns the process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/updatesink/internal/aggregator"
	"github.com/ManuGH/updatesink/internal/api"
	"github.com/ManuGH/updatesink/internal/config"
	"github.com/ManuGH/updatesink/internal/dump"
	"github.com/ManuGH/updatesink/internal/health"
	"github.com/ManuGH/updatesink/internal/log"
	"github.com/ManuGH/updatesink/internal/sink"
)

// Runtime is the fully wired receiver. Sinks are process-wide singletons
// built once here and injected everywhere else.
type Runtime struct {
	Sinks      *sink.Pair
	Aggregator *aggregator.Aggregator
	Dumper     *dump.Dumper
	Health     *health.Manager
	API        *api.Server
}

// Bootstrap opens the sinks and builds every component for cfg.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (*Runtime, error) {
	logger := log.WithComponent("bootstrap")

	pair, err := sink.OpenPair(ctx, cfg.SinkOptions())
	if err != nil {
		return nil, fmt.Errorf("open sinks: %w", err)
	}

	policy := cfg.AccessPolicy()
	agg := aggregator.New(pair.Text, pair.JSON, policy)
	dumper := dump.New(filepath.Join(cfg.DataDir, cfg.Storage.DumpFile), policy)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("data_dir", cfg.DataDir))
	hm.RegisterChecker(health.NewLastBatchChecker(agg.LastBatch))
	if fs, ok := pair.Text.(*sink.FileSink); ok {
		hm.RegisterChecker(health.NewFileChecker("text_log", fs.Path()))
	}
	if fs, ok := pair.JSON.(*sink.FileSink); ok {
		hm.RegisterChecker(health.NewFileChecker("json_log", fs.Path()))
	}
	if pair.SQLite != nil {
		hm.RegisterChecker(health.NewSQLiteChecker(pair.SQLite.DB(), 2*time.Second))
	}

	srv, err := api.New(api.Deps{
		Processor:         agg,
		TextLog:           pair.Text,
		JSONLog:           pair.JSON,
		Dump:              dumper,
		Health:            hm,
		MaxBodyBytes:      cfg.API.MaxBodyBytes,
		RateLimitRPM:      cfg.API.RateLimitRPM,
		TrustProxyHeaders: cfg.API.TrustProxyHeaders,
		ServeMetrics:      cfg.MetricsListenAddr == "",
	})
	if err != nil {
		_ = pair.Close()
		return nil, fmt.Errorf("build api: %w", err)
	}

	logger.Info().
		Str("event", "bootstrap.ready").
		Str("backend", cfg.Storage.Backend).
		Str("data_dir", cfg.DataDir).
		Str("text_log", cfg.Storage.TextLog).
		Str("json_log", cfg.Storage.JSONLog).
		Str("dump_file", cfg.Storage.DumpFile).
		Str("mode", policy.EffectiveMode().String()).
		Msg("receiver wired")

	return &Runtime{
		Sinks:      pair,
		Aggregator: agg,
		Dumper:     dumper,
		Health:     hm,
		API:        srv,
	}, nil
}

// Close releases backend resources. Safe to register as a shutdown hook.
func (rt *Runtime) Close(context.Context) error {
	return rt.Sinks.Close()
}
