// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/ManuGH/updatesink/internal/validate"
)

// Validate checks a resolved configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, false)
	v.AbsPath("DataDir", cfg.DataDir)

	v.OneOf("Storage.Backend", cfg.Storage.Backend, []string{
		string(sink.BackendFile), string(sink.BackendSQLite), string(sink.BackendMemory),
	})
	v.FileName("Storage.TextLog", cfg.Storage.TextLog)
	v.FileName("Storage.JSONLog", cfg.Storage.JSONLog)
	v.FileName("Storage.DumpFile", cfg.Storage.DumpFile)
	if cfg.Storage.TextLog == cfg.Storage.JSONLog {
		v.AddError("Storage.JSONLog", "must differ from Storage.TextLog", cfg.Storage.JSONLog)
	}
	if cfg.Storage.DumpFile == cfg.Storage.TextLog || cfg.Storage.DumpFile == cfg.Storage.JSONLog {
		v.AddError("Storage.DumpFile", "must differ from the update logs", cfg.Storage.DumpFile)
	}

	v.FileMode("Access.Mode", cfg.Access.Mode, sink.DefaultMode)
	if cfg.Access.Mode == 0 {
		v.AddError("Access.Mode", "mode cannot be zero", cfg.Access.Mode)
	}

	v.ListenAddr("API.ListenAddr", cfg.API.ListenAddr)
	if cfg.MetricsListenAddr != "" {
		v.ListenAddr("MetricsListenAddr", cfg.MetricsListenAddr)
	}
	if cfg.API.MaxBodyBytes <= 0 {
		v.AddError("API.MaxBodyBytes", "must be positive", cfg.API.MaxBodyBytes)
	}
	v.NonNegative("API.RateLimitRPM", cfg.API.RateLimitRPM)

	v.LogLevel("LogLevel", cfg.LogLevel)

	return v.Err()
}

// AccessPolicy converts the access configuration into the sink policy.
func (c AppConfig) AccessPolicy() sink.AccessPolicy {
	return sink.AccessPolicy{Group: c.Access.Group, Mode: c.Access.Mode}
}

// SinkOptions converts the storage configuration into sink.OpenPair options.
func (c AppConfig) SinkOptions() sink.Options {
	return sink.Options{
		Backend:  sink.Backend(c.Storage.Backend),
		Dir:      c.DataDir,
		TextName: c.Storage.TextLog,
		JSONName: c.Storage.JSONLog,
	}
}
