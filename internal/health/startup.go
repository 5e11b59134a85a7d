// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/updatesink/internal/config"
	"github.com/ManuGH/updatesink/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the listeners start.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str("event", "startup.checks_begin").Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkAccessPolicy(logger, cfg); err != nil {
		return fmt.Errorf("access policy check failed: %w", err)
	}
	warnTempDataDir(logger, cfg.DataDir)

	logger.Info().Str("event", "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	if err := checkWritable(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Info().Str(log.FieldPath, path).Msg("data directory is writable")
	return nil
}

// checkAccessPolicy resolves the shared group now so a typo fails startup
// instead of the first batch.
func checkAccessPolicy(logger zerolog.Logger, cfg config.AppConfig) error {
	policy := cfg.AccessPolicy()
	gid, err := policy.ResolveGID()
	if err != nil {
		return err
	}
	logger.Info().
		Str("group", policy.Group).
		Int("gid", gid).
		Str("mode", policy.EffectiveMode().String()).
		Msg("access policy resolved")
	return nil
}

func warnTempDataDir(logger zerolog.Logger, dataDir string) {
	tempDir := filepath.Clean(os.TempDir())
	dataDir = filepath.Clean(dataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", dataDir).
			Msg("data directory is under temp; update logs may be lost on reboot")
	}
}
