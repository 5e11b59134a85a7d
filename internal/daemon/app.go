// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/updatesink/internal/config"
)

// App runs the receiver until its context ends: the listeners through Manager,
// plus config reloads on file change or SIGHUP when a ConfigHolder is given.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	reloadSignal os.Signal
}

// NewApp returns an App. cfgHolder may be nil, which disables reloads.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if stop := a.watchConfig(ctx); stop != nil {
		defer stop()
	}
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error { return a.reloadOnSignal(ctx) })
	}
	// Start shuts the listeners and hooks down itself on both exit paths.
	g.Go(func() error { return a.manager.Start(ctx) })

	return g.Wait()
}

// watchConfig starts the file watcher and returns its stop func.
// When it cannot start the receiver keeps running without hot reload.
func (a *App) watchConfig(ctx context.Context) func() {
	if a.cfgHolder == nil {
		return nil
	}
	if err := a.cfgHolder.StartWatcher(ctx); err != nil {
		a.logger.Warn().
			Err(err).
			Str("event", "config.watcher_start_failed").
			Msg("config file changes will not be picked up")
		return nil
	}
	return a.cfgHolder.Stop
}

func (a *App) reloadOnSignal(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, a.reloadSignal)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			a.logger.Info().
				Str("event", "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("reloading configuration")
			if err := a.cfgHolder.Reload(ctx); err != nil {
				a.logger.Warn().
					Err(err).
					Str("event", "config.reload_failed").
					Msg("keeping previous configuration")
			}
		}
	}
}
