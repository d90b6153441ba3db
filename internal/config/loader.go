// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/vmerge/internal/log"
)

// Environment variable names.
const (
	EnvDataDir          = "VMERGE_DATA"
	EnvUploadDir        = "VMERGE_UPLOAD_DIR"
	EnvOutputDir        = "VMERGE_OUTPUT_DIR"
	EnvLogLevel         = "VMERGE_LOG_LEVEL"
	EnvLogService       = "VMERGE_LOG_SERVICE"
	EnvListen           = "VMERGE_LISTEN"
	EnvReadTimeout      = "VMERGE_READ_TIMEOUT"
	EnvWriteTimeout     = "VMERGE_WRITE_TIMEOUT"
	EnvIdleTimeout      = "VMERGE_IDLE_TIMEOUT"
	EnvShutdownTimeout  = "VMERGE_SHUTDOWN_TIMEOUT"
	EnvRateLimitEnabled = "VMERGE_RATELIMIT_ENABLED"
	EnvRateLimitReqs    = "VMERGE_RATELIMIT_REQUESTS"
	EnvRateLimitWindow  = "VMERGE_RATELIMIT_WINDOW"
	EnvMaxUploadBytes   = "VMERGE_MAX_UPLOAD_BYTES"
	EnvAllowedExts      = "VMERGE_ALLOWED_EXTENSIONS"
	EnvFFmpegBin        = "VMERGE_FFMPEG_BIN"
	EnvFFprobeBin       = "VMERGE_FFPROBE_BIN"
	EnvMergeTimeout     = "VMERGE_MERGE_TIMEOUT"
	EnvKillGrace        = "VMERGE_KILL_GRACE"
	EnvPreset           = "VMERGE_PRESET"
	EnvFontPatterns     = "VMERGE_FONT_PATTERNS"
	EnvCardDuration     = "VMERGE_TEXTCARD_DURATION"
	EnvCardFPS          = "VMERGE_TEXTCARD_FPS"
	EnvOutputRetention  = "VMERGE_OUTPUT_RETENTION"
	EnvSweepInterval    = "VMERGE_SWEEP_INTERVAL"
	EnvTracingEnabled   = "VMERGE_TRACING_ENABLED"
	EnvTracingExporter  = "VMERGE_TRACING_EXPORTER"
	EnvTracingEndpoint  = "VMERGE_TRACING_ENDPOINT"
	EnvTracingSampling  = "VMERGE_TRACING_SAMPLING_RATE"
	EnvEnvironment      = "VMERGE_ENVIRONMENT"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load applies defaults, then the strict YAML file, then the environment,
// and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if cfg.FFmpeg.FFprobeBin == "" {
		cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin("", cfg.FFmpeg.Bin)
	}
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	logger := log.WithComponent("config")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("file", l.configPath).
		Str("data_dir", cfg.DataDir).
		Str("listen", cfg.API.ListenAddr).
		Int64("max_upload_bytes", cfg.Upload.MaxBytes).
		Dur("merge_timeout", cfg.FFmpeg.MergeTimeout).
		Msg("configuration loaded")
	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
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
	return ParseFile(data)
}

// ParseFile decodes one strict YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.UploadDir, f.UploadDir)
	setString(&cfg.OutputDir, f.OutputDir)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)

	var errs []error
	dur := func(dst *time.Duration, name, raw string) {
		if raw == "" {
			return
		}
		d, err := parseDurationValue(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}

	if a := f.API; a != nil {
		setString(&cfg.API.ListenAddr, a.ListenAddr)
		dur(&cfg.API.ReadTimeout, "api.readTimeout", a.ReadTimeout)
		dur(&cfg.API.WriteTimeout, "api.writeTimeout", a.WriteTimeout)
		dur(&cfg.API.IdleTimeout, "api.idleTimeout", a.IdleTimeout)
		dur(&cfg.API.ShutdownTimeout, "api.shutdownTimeout", a.ShutdownTimeout)
		if rl := a.RateLimit; rl != nil {
			if rl.Enabled != nil {
				cfg.API.RateLimit.Enabled = *rl.Enabled
			}
			if rl.Requests != nil {
				cfg.API.RateLimit.Requests = *rl.Requests
			}
			dur(&cfg.API.RateLimit.Window, "api.rateLimit.window", rl.Window)
		}
	}
	if u := f.Upload; u != nil {
		if u.MaxBytes != nil {
			cfg.Upload.MaxBytes = *u.MaxBytes
		}
		if u.AllowedExtensions != nil {
			cfg.Upload.AllowedExtensions = u.AllowedExtensions
		}
	}
	if ff := f.FFmpeg; ff != nil {
		setString(&cfg.FFmpeg.Bin, ff.Bin)
		setString(&cfg.FFmpeg.FFprobeBin, ff.FFprobeBin)
		setString(&cfg.FFmpeg.Preset, ff.Preset)
		dur(&cfg.FFmpeg.MergeTimeout, "ffmpeg.mergeTimeout", ff.MergeTimeout)
		dur(&cfg.FFmpeg.KillGrace, "ffmpeg.killGrace", ff.KillGrace)
	}
	if tc := f.TextCard; tc != nil {
		if tc.FontPatterns != nil {
			cfg.TextCard.FontPatterns = tc.FontPatterns
		}
		if tc.FPS != nil {
			cfg.TextCard.FPS = *tc.FPS
		}
		dur(&cfg.TextCard.DefaultDuration, "textCard.defaultDuration", tc.DefaultDuration)
	}
	if o := f.Output; o != nil {
		dur(&cfg.Output.Retention, "output.retention", o.Retention)
		dur(&cfg.Output.SweepInterval, "output.sweepInterval", o.SweepInterval)
	}
	if t := f.Telemetry; t != nil {
		if t.Enabled != nil {
			cfg.Telemetry.Enabled = *t.Enabled
		}
		if t.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *t.SamplingRate
		}
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setString(&cfg.Telemetry.Environment, t.Environment)
	}
	return errors.Join(errs...)
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.UploadDir = ParseString(EnvUploadDir, cfg.UploadDir)
	cfg.OutputDir = ParseString(EnvOutputDir, cfg.OutputDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = ParseString(EnvLogService, cfg.LogService)

	cfg.API.ListenAddr = ParseString(EnvListen, cfg.API.ListenAddr)
	cfg.API.ReadTimeout = ParseDuration(EnvReadTimeout, cfg.API.ReadTimeout)
	cfg.API.WriteTimeout = ParseDuration(EnvWriteTimeout, cfg.API.WriteTimeout)
	cfg.API.IdleTimeout = ParseDuration(EnvIdleTimeout, cfg.API.IdleTimeout)
	cfg.API.ShutdownTimeout = ParseDuration(EnvShutdownTimeout, cfg.API.ShutdownTimeout)
	cfg.API.RateLimit.Enabled = ParseBool(EnvRateLimitEnabled, cfg.API.RateLimit.Enabled)
	cfg.API.RateLimit.Requests = ParseInt(EnvRateLimitReqs, cfg.API.RateLimit.Requests)
	cfg.API.RateLimit.Window = ParseDuration(EnvRateLimitWindow, cfg.API.RateLimit.Window)

	cfg.Upload.MaxBytes = ParseInt64(EnvMaxUploadBytes, cfg.Upload.MaxBytes)
	cfg.Upload.AllowedExtensions = ParseList(EnvAllowedExts, cfg.Upload.AllowedExtensions)

	cfg.FFmpeg.Bin = ParseString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = ParseString(EnvFFprobeBin, cfg.FFmpeg.FFprobeBin)
	cfg.FFmpeg.MergeTimeout = ParseDuration(EnvMergeTimeout, cfg.FFmpeg.MergeTimeout)
	cfg.FFmpeg.KillGrace = ParseDuration(EnvKillGrace, cfg.FFmpeg.KillGrace)
	cfg.FFmpeg.Preset = ParseString(EnvPreset, cfg.FFmpeg.Preset)

	cfg.TextCard.FontPatterns = ParseList(EnvFontPatterns, cfg.TextCard.FontPatterns)
	cfg.TextCard.DefaultDuration = ParseDuration(EnvCardDuration, cfg.TextCard.DefaultDuration)
	cfg.TextCard.FPS = ParseInt(EnvCardFPS, cfg.TextCard.FPS)

	cfg.Output.Retention = ParseDuration(EnvOutputRetention, cfg.Output.Retention)
	cfg.Output.SweepInterval = ParseDuration(EnvSweepInterval, cfg.Output.SweepInterval)

	cfg.Telemetry.Enabled = ParseBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvTracingExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvTracingEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTracingSampling, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString(EnvEnvironment, cfg.Telemetry.Environment)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
