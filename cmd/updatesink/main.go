// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/updatesink/internal/config"
	"github.com/ManuGH/updatesink/internal/daemon"
	"github.com/ManuGH/updatesink/internal/health"
	xglog "github.com/ManuGH/updatesink/internal/log"
	"github.com/ManuGH/updatesink/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: config.DefaultLogService,
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Strs("env_overrides", loader.OverriddenEnvKeys()).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify data directory and group")
	}

	rt, err := daemon.Bootstrap(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "bootstrap.failed").Msg("failed to wire receiver")
	}

	mgr, err := daemon.NewManager(config.ServerConfigFor(cfg), daemon.Deps{
		Logger:         xglog.WithComponent("manager"),
		APIHandler:     rt.API.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		_ = rt.Close(ctx)
		logger.Fatal().Err(err).Str("event", "manager.init_failed").Msg("failed to create daemon manager")
	}
	mgr.RegisterShutdownHook("sinks", rt.Close)

	app := daemon.NewApp(logger, mgr, config.NewConfigHolder(cfg, loader))
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.exit").Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.exit").Msg("daemon stopped")
}
