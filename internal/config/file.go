// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// FileConfig mirrors the YAML file. Pointers distinguish "absent" from an
// explicit zero value.
type FileConfig struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	UploadDir  string `yaml:"uploadDir,omitempty"`
	OutputDir  string `yaml:"outputDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	API       *APIFile       `yaml:"api,omitempty"`
	Upload    *UploadFile    `yaml:"upload,omitempty"`
	FFmpeg    *FFmpegFile    `yaml:"ffmpeg,omitempty"`
	TextCard  *TextCardFile  `yaml:"textCard,omitempty"`
	Output    *OutputFile    `yaml:"output,omitempty"`
	Telemetry *TelemetryFile `yaml:"telemetry,omitempty"`
}

type APIFile struct {
	ListenAddr      string         `yaml:"listenAddr,omitempty"`
	ReadTimeout     string         `yaml:"readTimeout,omitempty"`
	WriteTimeout    string         `yaml:"writeTimeout,omitempty"`
	IdleTimeout     string         `yaml:"idleTimeout,omitempty"`
	ShutdownTimeout string         `yaml:"shutdownTimeout,omitempty"`
	RateLimit       *RateLimitFile `yaml:"rateLimit,omitempty"`
}

type RateLimitFile struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Requests *int   `yaml:"requests,omitempty"`
	Window   string `yaml:"window,omitempty"`
}

type UploadFile struct {
	MaxBytes          *int64   `yaml:"maxBytes,omitempty"`
	AllowedExtensions []string `yaml:"allowedExtensions,omitempty"`
}

type FFmpegFile struct {
	Bin          string `yaml:"bin,omitempty"`
	FFprobeBin   string `yaml:"ffprobeBin,omitempty"`
	MergeTimeout string `yaml:"mergeTimeout,omitempty"`
	KillGrace    string `yaml:"killGrace,omitempty"`
	Preset       string `yaml:"preset,omitempty"`
}

type TextCardFile struct {
	FontPatterns    []string `yaml:"fontPatterns,omitempty"`
	DefaultDuration string   `yaml:"defaultDuration,omitempty"`
	FPS             *int     `yaml:"fps,omitempty"`
}

type OutputFile struct {
	Retention     string `yaml:"retention,omitempty"`
	SweepInterval string `yaml:"sweepInterval,omitempty"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}
