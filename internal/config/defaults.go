// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/merge"
	"github.com/ManuGH/vmerge/internal/textcard"
)

// DefaultMaxUploadBytes is the total request body limit (2 GiB).
const DefaultMaxUploadBytes int64 = 2 << 30

// Defaults returns the configuration used when neither file nor environment
// says otherwise.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "/tmp/video-merger",
		LogLevel:   "info",
		LogService: "vmerge",
		API: APIConfig{
			ListenAddr:      ":5000",
			ReadTimeout:     0,
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:  true,
				Requests: 30,
				Window:   time.Minute,
			},
		},
		Upload: UploadConfig{
			MaxBytes:          DefaultMaxUploadBytes,
			AllowedExtensions: append([]string(nil), merge.DefaultExtensions...),
		},
		FFmpeg: FFmpegConfig{
			Bin:          "ffmpeg",
			MergeTimeout: merge.DefaultTimeout,
			KillGrace:    5 * time.Second,
			Preset:       "fast",
		},
		TextCard: TextCardConfig{
			FontPatterns:    textcard.DefaultFontPatterns(),
			DefaultDuration: time.Duration(media.DefaultCardDuration * float64(time.Second)),
			FPS:             30,
		},
		Output: OutputConfig{
			Retention:     time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
