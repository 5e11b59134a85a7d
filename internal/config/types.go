// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads updatesink configuration from defaults, an optional
// YAML file and UPDATESINK_* environment variables, in that order of precedence.
package config

import (
	"os"
	"time"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version string

	DataDir string
	Storage StorageConfig
	Access  AccessConfig
	API     APIConfig

	MetricsListenAddr string

	LogLevel   string
	LogService string

	Server ServerRuntimeConfig
}

// StorageConfig selects the sink backend and artifact names.
type StorageConfig struct {
	Backend  string
	TextLog  string
	JSONLog  string
	DumpFile string
}

// AccessConfig is the access policy applied to every written artifact.
type AccessConfig struct {
	Group string
	Mode  os.FileMode
}

// APIConfig configures the receiver endpoints.
type APIConfig struct {
	ListenAddr   string
	MaxBodyBytes int64
	RateLimitRPM int
	// TrustProxyHeaders keys the rate limiter on X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
}

// ServerRuntimeConfig holds http.Server tuning.
type ServerRuntimeConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// FileConfig mirrors the YAML file layout. Zero values mean "not set".
type FileConfig struct {
	DataDir string `yaml:"dataDir"`

	Storage struct {
		Backend  string `yaml:"backend"`
		TextLog  string `yaml:"textLog"`
		JSONLog  string `yaml:"jsonLog"`
		DumpFile string `yaml:"dumpFile"`
	} `yaml:"storage"`

	Access struct {
		Group string `yaml:"group"`
		Mode  string `yaml:"mode"`
	} `yaml:"access"`

	API struct {
		ListenAddr   string `yaml:"listenAddr"`
		MaxBodyBytes int64  `yaml:"maxBodyBytes"`
		RateLimitRPM int    `yaml:"rateLimitRPM"`
		TrustProxy   *bool  `yaml:"trustProxyHeaders"`
	} `yaml:"api"`

	Metrics struct {
		ListenAddr string `yaml:"listenAddr"`
	} `yaml:"metrics"`

	Log struct {
		Level   string `yaml:"level"`
		Service string `yaml:"service"`
	} `yaml:"log"`

	Server struct {
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		IdleTimeout     time.Duration `yaml:"idleTimeout"`
		MaxHeaderBytes  int           `yaml:"maxHeaderBytes"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`
}
