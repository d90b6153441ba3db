// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/telemetry"
)

// Validate checks cfg and reports every problem at once. All errors wrap
// ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(cfg.DataDir) == "" && (cfg.UploadDir == "" || cfg.OutputDir == "") {
		fail("dataDir must be set")
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
			fail("logLevel %q is not a known level", cfg.LogLevel)
		}
	}

	if strings.TrimSpace(cfg.API.ListenAddr) == "" {
		fail("api.listenAddr must be set")
	}
	if cfg.API.ReadTimeout < 0 || cfg.API.WriteTimeout < 0 || cfg.API.IdleTimeout < 0 {
		fail("api timeouts must not be negative")
	}
	if cfg.API.ShutdownTimeout <= 0 {
		fail("api.shutdownTimeout must be positive")
	}
	if rl := cfg.API.RateLimit; rl.Enabled && (rl.Requests <= 0 || rl.Window <= 0) {
		fail("api.rateLimit requires positive requests and window when enabled")
	}

	if cfg.Upload.MaxBytes <= 0 {
		fail("upload.maxBytes must be positive, got %d", cfg.Upload.MaxBytes)
	}
	if len(media.NewExtensionSet(cfg.Upload.AllowedExtensions)) == 0 {
		fail("upload.allowedExtensions must not be empty")
	}

	if strings.TrimSpace(cfg.FFmpeg.Bin) == "" {
		fail("ffmpeg.bin must be set")
	}
	if cfg.FFmpeg.MergeTimeout <= 0 {
		fail("ffmpeg.mergeTimeout must be positive")
	}
	if cfg.FFmpeg.KillGrace <= 0 {
		fail("ffmpeg.killGrace must be positive")
	}
	if strings.TrimSpace(cfg.FFmpeg.Preset) == "" {
		fail("ffmpeg.preset must be set")
	}

	if cfg.TextCard.FPS <= 0 {
		fail("textCard.fps must be positive")
	}
	if cfg.TextCard.DefaultDuration.Seconds() < media.MinCardDuration {
		fail("textCard.defaultDuration must be at least %.1fs", media.MinCardDuration)
	}

	if cfg.Output.Retention <= 0 {
		fail("output.retention must be positive")
	}
	if cfg.Output.SweepInterval <= 0 {
		fail("output.sweepInterval must be positive")
	}

	if t := cfg.Telemetry; t.Enabled {
		if t.Exporter != telemetry.ExporterGRPC && t.Exporter != telemetry.ExporterHTTP {
			fail("telemetry.exporter %q is not supported (grpc, http)", t.Exporter)
		}
		if strings.TrimSpace(t.Endpoint) == "" {
			fail("telemetry.endpoint must be set when tracing is enabled")
		}
	}
	if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
		fail("telemetry.samplingRate must be within [0,1], got %v", r)
	}

	return errors.Join(errs...)
}
