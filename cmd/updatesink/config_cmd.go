// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/updatesink/internal/config"
	"github.com/ManuGH/updatesink/internal/version"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  updatesink config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  updatesink config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("updatesink config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", describeSource(path), err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", describeSource(path))
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// in the YAML file layout, so the output can be used as a config file.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("updatesink config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", describeSource(path), err)
		return 1
	}
	fileCfg := fileConfigFromAppConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func describeSource(path string) string {
	if path == "" {
		return "environment+defaults"
	}
	return path
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	var fc config.FileConfig
	fc.DataDir = cfg.DataDir

	fc.Storage.Backend = cfg.Storage.Backend
	fc.Storage.TextLog = cfg.Storage.TextLog
	fc.Storage.JSONLog = cfg.Storage.JSONLog
	fc.Storage.DumpFile = cfg.Storage.DumpFile

	fc.Access.Group = cfg.Access.Group
	fc.Access.Mode = fmt.Sprintf("%04o", uint32(cfg.Access.Mode.Perm()))

	trustProxy := cfg.API.TrustProxyHeaders
	fc.API.ListenAddr = cfg.API.ListenAddr
	fc.API.MaxBodyBytes = cfg.API.MaxBodyBytes
	fc.API.RateLimitRPM = cfg.API.RateLimitRPM
	fc.API.TrustProxy = &trustProxy

	fc.Metrics.ListenAddr = cfg.MetricsListenAddr
	fc.Log.Level = cfg.LogLevel
	fc.Log.Service = cfg.LogService

	fc.Server.ReadTimeout = cfg.Server.ReadTimeout
	fc.Server.WriteTimeout = cfg.Server.WriteTimeout
	fc.Server.IdleTimeout = cfg.Server.IdleTimeout
	fc.Server.MaxHeaderBytes = cfg.Server.MaxHeaderBytes
	fc.Server.ShutdownTimeout = cfg.Server.ShutdownTimeout
	return fc
}
