// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/updatesink/internal/sink"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultDataDir      = "/var/lib/updatesink"
	DefaultBackend      = string(sink.BackendFile)
	DefaultTextLog      = "updater.log"
	DefaultJSONLog      = "updater.json"
	DefaultDumpFile     = "post.dat"
	DefaultListenAddr   = ":8088"
	DefaultMaxBodyBytes = 1 << 20
	DefaultRateLimitRPM = 600
	DefaultLogLevel     = "info"
	DefaultLogService   = "updatesink"
)

// Environment keys.
const (
	EnvDataDir         = "UPDATESINK_DATA"
	EnvBackend         = "UPDATESINK_BACKEND"
	EnvTextLog         = "UPDATESINK_TEXT_LOG"
	EnvJSONLog         = "UPDATESINK_JSON_LOG"
	EnvDumpFile        = "UPDATESINK_DUMP_FILE"
	EnvGroup           = "UPDATESINK_GROUP"
	EnvMode            = "UPDATESINK_MODE"
	EnvListen          = "UPDATESINK_LISTEN"
	EnvMaxBody         = "UPDATESINK_MAX_BODY"
	EnvRateLimitRPM    = "UPDATESINK_RATE_LIMIT_RPM"
	EnvTrustProxy      = "UPDATESINK_TRUST_PROXY"
	EnvMetricsListen   = "UPDATESINK_METRICS_LISTEN"
	EnvLogLevel        = "UPDATESINK_LOG_LEVEL"
	EnvLogService      = "UPDATESINK_LOG_SERVICE"
	EnvReadTimeout     = "UPDATESINK_SERVER_READ_TIMEOUT"
	EnvWriteTimeout    = "UPDATESINK_SERVER_WRITE_TIMEOUT"
	EnvIdleTimeout     = "UPDATESINK_SERVER_IDLE_TIMEOUT"
	EnvMaxHeaderBytes  = "UPDATESINK_SERVER_MAX_HEADER_BYTES"
	EnvShutdownTimeout = "UPDATESINK_SERVER_SHUTDOWN_TIMEOUT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath returns the file the loader reads, or "" for env-only configuration.
func (l *Loader) ConfigPath() string { return l.configPath }

// OverriddenEnvKeys lists the consulted environment keys with a non-empty value, sorted.
func (l *Loader) OverriddenEnvKeys() []string {
	keys := make([]string, 0, len(l.ConsumedEnvKeys))
	for key := range l.ConsumedEnvKeys {
		if strings.TrimSpace(os.Getenv(key)) != "" {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envMode(key string, defaultVal os.FileMode) os.FileMode {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFileMode(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: DefaultDataDir,
		Storage: StorageConfig{
			Backend:  DefaultBackend,
			TextLog:  DefaultTextLog,
			JSONLog:  DefaultJSONLog,
			DumpFile: DefaultDumpFile,
		},
		Access: AccessConfig{Mode: sink.DefaultMode},
		API: APIConfig{
			ListenAddr:   DefaultListenAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
			RateLimitRPM: DefaultRateLimitRPM,
		},
		LogLevel:   DefaultLogLevel,
		LogService: DefaultLogService,
		Server:     defaultServerRuntimeConfig(),
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}

	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.DataDir, src.DataDir)

	setString(&dst.Storage.Backend, src.Storage.Backend)
	setString(&dst.Storage.TextLog, src.Storage.TextLog)
	setString(&dst.Storage.JSONLog, src.Storage.JSONLog)
	setString(&dst.Storage.DumpFile, src.Storage.DumpFile)

	setString(&dst.Access.Group, src.Access.Group)
	if strings.TrimSpace(src.Access.Mode) != "" {
		mode, err := parseOctalMode(src.Access.Mode)
		if err != nil {
			return fmt.Errorf("access.mode %q: %w", src.Access.Mode, err)
		}
		dst.Access.Mode = mode
	}

	setString(&dst.API.ListenAddr, src.API.ListenAddr)
	if src.API.MaxBodyBytes > 0 {
		dst.API.MaxBodyBytes = src.API.MaxBodyBytes
	}
	if src.API.RateLimitRPM != 0 {
		dst.API.RateLimitRPM = src.API.RateLimitRPM
	}
	if src.API.TrustProxy != nil {
		dst.API.TrustProxyHeaders = *src.API.TrustProxy
	}

	setString(&dst.MetricsListenAddr, src.Metrics.ListenAddr)
	setString(&dst.LogLevel, src.Log.Level)
	setString(&dst.LogService, src.Log.Service)

	if src.Server.ReadTimeout > 0 {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.WriteTimeout > 0 {
		dst.Server.WriteTimeout = src.Server.WriteTimeout
	}
	if src.Server.IdleTimeout > 0 {
		dst.Server.IdleTimeout = src.Server.IdleTimeout
	}
	if src.Server.MaxHeaderBytes > 0 {
		dst.Server.MaxHeaderBytes = src.Server.MaxHeaderBytes
	}
	if src.Server.ShutdownTimeout > 0 {
		dst.Server.ShutdownTimeout = src.Server.ShutdownTimeout
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)

	cfg.Storage.Backend = l.envString(EnvBackend, cfg.Storage.Backend)
	cfg.Storage.TextLog = l.envString(EnvTextLog, cfg.Storage.TextLog)
	cfg.Storage.JSONLog = l.envString(EnvJSONLog, cfg.Storage.JSONLog)
	cfg.Storage.DumpFile = l.envString(EnvDumpFile, cfg.Storage.DumpFile)

	cfg.Access.Group = l.envString(EnvGroup, cfg.Access.Group)
	cfg.Access.Mode = l.envMode(EnvMode, cfg.Access.Mode)

	cfg.API.ListenAddr = l.envString(EnvListen, cfg.API.ListenAddr)
	cfg.API.MaxBodyBytes = int64(l.envInt(EnvMaxBody, int(cfg.API.MaxBodyBytes)))
	cfg.API.RateLimitRPM = l.envInt(EnvRateLimitRPM, cfg.API.RateLimitRPM)
	cfg.API.TrustProxyHeaders = l.envBool(EnvTrustProxy, cfg.API.TrustProxyHeaders)

	cfg.MetricsListenAddr = l.envString(EnvMetricsListen, cfg.MetricsListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)

	cfg.Server.ReadTimeout = l.envDuration(EnvReadTimeout, cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration(EnvWriteTimeout, cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration(EnvIdleTimeout, cfg.Server.IdleTimeout)
	cfg.Server.MaxHeaderBytes = l.envInt(EnvMaxHeaderBytes, cfg.Server.MaxHeaderBytes)
	cfg.Server.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
