// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/vmerge/internal/api"
	"github.com/ManuGH/vmerge/internal/api/middleware"
	"github.com/ManuGH/vmerge/internal/config"
	"github.com/ManuGH/vmerge/internal/daemon"
	"github.com/ManuGH/vmerge/internal/health"
	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/telemetry"
	"github.com/ManuGH/vmerge/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "merge":
			os.Exit(runMergeCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "vmerge",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(strings.TrimSpace(*configPath))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialise tracing")
	}

	svc, err := buildServices(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.failed").Msg("failed to build merge pipeline")
	}

	hm := health.NewManager(cfg.Version)
	dirs := []health.Checker{
		health.NewWritableDirChecker("uploads_dir", svc.workspace.UploadRoot()),
		health.NewWritableDirChecker("outputs_dir", svc.workspace.OutputRoot()),
	}
	tools := []health.Checker{
		health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin),
		health.NewBinaryChecker("ffprobe", cfg.FFmpeg.FFprobeBin),
	}
	if err := health.PerformStartupChecks(ctx, dirs, tools); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}
	for _, c := range append(dirs, tools...) {
		hm.RegisterChecker(c)
	}

	tracingService := ""
	if tp.Enabled() {
		tracingService = cfg.LogService
	}
	s := api.New(api.Config{
		Version:        cfg.Version,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		RateLimitOn:    cfg.API.RateLimit.Enabled,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.API.RateLimit.Requests,
			WindowSize:   cfg.API.RateLimit.Window,
		},
		TracingService: tracingService,
		Readiness:      hm,
	}, svc.orchestrator, svc.workspace, xglog.WithComponent("api"))

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.API.ListenAddr).
		Str("uploads", svc.workspace.UploadRoot()).
		Str("outputs", svc.workspace.OutputRoot()).
		Str("ffmpeg", cfg.FFmpeg.Bin).
		Str("ffprobe", cfg.FFmpeg.FFprobeBin).
		Dur("merge_timeout", cfg.FFmpeg.MergeTimeout).
		Bool("tracing", tp.Enabled()).
		Msg("starting vmerge")

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:     logger,
		Server:     cfg.API,
		APIHandler: s.Handler(),
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	app := daemon.NewApp(logger, mgr, svc.workspace, daemon.SweepConfig{
		Interval:  cfg.Output.SweepInterval,
		Retention: cfg.Output.Retention,
	})
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}

func loadConfig(path string) (config.AppConfig, error) {
	return config.NewLoader(path, version.Version).Load()
}
