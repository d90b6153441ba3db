// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/vmerge/internal/log"
)

// parseEnv reads key and converts it with parse. Unset or empty variables
// and conversion failures yield def; every choice is logged.
func parseEnv[T any](key string, def T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", def).
			Str("source", "default").
			Msg("using default value")
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", def).
			Err(err).
			Msg("invalid value in environment variable, using default")
		return def
	}
	logger.Debug().
		Str("key", key).
		Str("value", v).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer, used for byte limits.
func ParseInt64(key string, defaultValue int64) int64 {
	return parseEnv(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	})
}

// ParseDuration reads a duration in Go duration format (e.g. "5s"). A bare
// number is taken as seconds.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, parseDurationValue)
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", s)
	})
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	})
}

// ParseList reads a comma separated list. Blank entries are dropped.
func ParseList(key string, defaultValue []string) []string {
	return parseEnv(key, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty list %q", s)
		}
		return out, nil
	})
}

func parseDurationValue(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
