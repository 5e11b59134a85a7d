// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/updatesink/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{
	EnvDataDir, EnvBackend, EnvTextLog, EnvJSONLog, EnvDumpFile, EnvGroup, EnvMode,
	EnvListen, EnvMaxBody, EnvRateLimitRPM, EnvTrustProxy, EnvMetricsListen, EnvLogLevel, EnvLogService,
	EnvReadTimeout, EnvWriteTimeout, EnvIdleTimeout, EnvMaxHeaderBytes, EnvShutdownTimeout,
}

// clearEnv blanks every UPDATESINK_* key; empty values fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnvKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, "v-test", cfg.Version)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DefaultBackend, cfg.Storage.Backend)
	assert.Equal(t, "updater.log", cfg.Storage.TextLog)
	assert.Equal(t, "updater.json", cfg.Storage.JSONLog)
	assert.Equal(t, "post.dat", cfg.Storage.DumpFile)
	assert.Equal(t, os.FileMode(0o660), cfg.Access.Mode)
	assert.Empty(t, cfg.Access.Group)
	assert.Equal(t, DefaultListenAddr, cfg.API.ListenAddr)
	assert.EqualValues(t, DefaultMaxBodyBytes, cfg.API.MaxBodyBytes)
	assert.Equal(t, DefaultRateLimitRPM, cfg.API.RateLimitRPM)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func TestLoader_FileThenEnvPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dir+`
storage:
  backend: sqlite
  textLog: text.log
  jsonLog: batches.json
access:
  group: "0"
  mode: "0640"
api:
  listenAddr: "127.0.0.1:9000"
  rateLimitRPM: 30
  trustProxyHeaders: true
log:
  level: debug
server:
  readTimeout: 5s
`)
	t.Setenv(EnvTextLog, "env.log")
	t.Setenv(EnvListen, ":9100")

	cfg, err := NewLoader(path, "v").Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "env.log", cfg.Storage.TextLog, "env beats file")
	assert.Equal(t, "batches.json", cfg.Storage.JSONLog)
	assert.Equal(t, "post.dat", cfg.Storage.DumpFile, "unset keys keep defaults")
	assert.Equal(t, "0", cfg.Access.Group)
	assert.Equal(t, os.FileMode(0o640), cfg.Access.Mode)
	assert.Equal(t, ":9100", cfg.API.ListenAddr)
	assert.Equal(t, 30, cfg.API.RateLimitRPM)
	assert.True(t, cfg.API.TrustProxyHeaders)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, cfg.Server.WriteTimeout)
}

func TestLoader_OverriddenEnvKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvLogLevel, "debug")

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{EnvDataDir, EnvLogLevel}, loader.OverriddenEnvKeys())
}

func TestLoader_EnvMode(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvMode, "0600")

	cfg, err := NewLoader("", "v").Load()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), cfg.Access.Mode)
}

func TestLoader_RelativeDataDirBecomesAbsolute(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvDataDir, "data")

	cfg, err := NewLoader("", "v").Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, "data", filepath.Base(cfg.DataDir))
}

func TestLoader_StrictFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	t.Run("unknown field", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  backend: file\n  compression: zstd\n")
		_, err := NewLoader(path, "v").Load()
		require.ErrorIs(t, err, ErrUnknownConfigField)
	})

	t.Run("multiple documents", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: info\n---\nlog:\n  level: debug\n")
		_, err := NewLoader(path, "v").Load()
		require.ErrorIs(t, err, ErrMultipleDocuments)
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		path := writeConfig(t, "")
		cfg, err := NewLoader(path, "v").Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultBackend, cfg.Storage.Backend)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		_, err := NewLoader(path, "v").Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})

	t.Run("bad octal mode", func(t *testing.T) {
		path := writeConfig(t, "access:\n  mode: \"rw-rw----\"\n")
		_, err := NewLoader(path, "v").Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access.mode")
	})
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.DataDir = t.TempDir()
	require.NoError(t, Validate(base))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"unknown backend", func(c *AppConfig) { c.Storage.Backend = "redis" }, "Storage.Backend"},
		{"empty text log", func(c *AppConfig) { c.Storage.TextLog = "" }, "Storage.TextLog"},
		{"nested json log", func(c *AppConfig) { c.Storage.JSONLog = "sub/updater.json" }, "Storage.JSONLog"},
		{"same log names", func(c *AppConfig) { c.Storage.JSONLog = c.Storage.TextLog }, "Storage.JSONLog"},
		{"dump collides", func(c *AppConfig) { c.Storage.DumpFile = c.Storage.TextLog }, "Storage.DumpFile"},
		{"world bits", func(c *AppConfig) { c.Access.Mode = 0o664 }, "Access.Mode"},
		{"zero mode", func(c *AppConfig) { c.Access.Mode = 0 }, "Access.Mode"},
		{"bad listen", func(c *AppConfig) { c.API.ListenAddr = "8088" }, "API.ListenAddr"},
		{"bad metrics listen", func(c *AppConfig) { c.MetricsListenAddr = "nope" }, "MetricsListenAddr"},
		{"zero body", func(c *AppConfig) { c.API.MaxBodyBytes = 0 }, "API.MaxBodyBytes"},
		{"negative rate", func(c *AppConfig) { c.API.RateLimitRPM = -1 }, "API.RateLimitRPM"},
		{"bad level", func(c *AppConfig) { c.LogLevel = "verbose" }, "LogLevel"},
		{"relative data dir", func(c *AppConfig) { c.DataDir = "data" }, "DataDir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.ErrorAs(t, err, &verr)
			var fields []string
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestServerConfigFor(t *testing.T) {
	cfg := Defaults()
	cfg.MetricsListenAddr = ":9090"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Server.MaxHeaderBytes = 0

	sc := ServerConfigFor(cfg)
	assert.Equal(t, DefaultListenAddr, sc.ListenAddr)
	assert.Equal(t, ":9090", sc.MetricsAddr)
	assert.Equal(t, minShutdownTimeout, sc.ShutdownTimeout)
	assert.Equal(t, defaultMaxHeaderBytes, sc.MaxHeaderBytes)
}

func TestAppConfig_AccessPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.Access.Group = "staff"
	p := cfg.AccessPolicy()
	assert.Equal(t, "staff", p.Group)
	assert.Equal(t, os.FileMode(0o660), p.Mode)
}
