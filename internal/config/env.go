// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/updatesink/internal/log"
	"github.com/rs/zerolog"
)

// envValue returns the trimmed value of key. Unset and blank variables both
// report ok=false so callers keep their default.
func envValue(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// parseEnv resolves key with parse, logging where the value came from.
// A value that does not parse is reported and the default is kept.
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := envValue(key)
	if !ok {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Str("default", fmt.Sprint(defaultValue)).
			Msg("environment override not set")
		return defaultValue
	}

	v, err := parse(raw)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("key", key).
			Str("value", raw).
			Str("default", fmt.Sprint(defaultValue)).
			Msg("ignoring malformed environment override")
		return defaultValue
	}

	logOverride(logger, key, raw)
	return v
}

func logOverride(logger zerolog.Logger, key, raw string) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "secret") {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", raw)
	}
	ev.Msg("environment override applied")
}

// ParseString returns the environment value of key, or defaultValue when it is unset or blank.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt returns key as a base-10 integer.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseDuration returns key in time.ParseDuration syntax ("5s", "250ms").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, parseBoolWord)
}

// ParseFileMode returns key as an octal permission such as "0660".
func ParseFileMode(key string, defaultValue os.FileMode) os.FileMode {
	return parseEnv(key, defaultValue, parseOctalMode)
}

func parseBoolWord(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func parseOctalMode(s string) (os.FileMode, error) {
	m, err := strconv.ParseUint(strings.TrimSpace(s), 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(m), nil
}
