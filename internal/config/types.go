// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	Version string

	DataDir   string
	UploadDir string // defaults to DataDir/uploads
	OutputDir string // defaults to DataDir/outputs

	LogLevel   string
	LogService string

	API       APIConfig
	Upload    UploadConfig
	FFmpeg    FFmpegConfig
	TextCard  TextCardConfig
	Output    OutputConfig
	Telemetry TelemetryConfig
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0 leaves large downloads unbounded
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimit       RateLimitConfig
}

// RateLimitConfig bounds merge requests per client IP.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// FFmpegConfig locates and drives the external tools.
type FFmpegConfig struct {
	Bin          string
	FFprobeBin   string
	MergeTimeout time.Duration
	KillGrace    time.Duration
	Preset       string
}

// TextCardConfig controls card rendering.
type TextCardConfig struct {
	FontPatterns    []string
	DefaultDuration time.Duration
	FPS             int
}

// OutputConfig controls reclamation of undelivered outputs.
type OutputConfig struct {
	Retention     time.Duration
	SweepInterval time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// UploadRoot returns the effective upload directory.
func (c AppConfig) UploadRoot() string {
	if c.UploadDir != "" {
		return c.UploadDir
	}
	return filepath.Join(c.DataDir, "uploads")
}

// OutputRoot returns the effective output directory.
func (c AppConfig) OutputRoot() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.DataDir, "outputs")
}
