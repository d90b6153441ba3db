// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/ManuGH/vmerge/internal/config"
	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/filtergraph"
	"github.com/ManuGH/vmerge/internal/infra/ffmpeg"
	"github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/merge"
	"github.com/ManuGH/vmerge/internal/textcard"
	"github.com/ManuGH/vmerge/internal/workspace"
)

// services is the merge pipeline shared by the HTTP service and the local
// merge subcommand.
type services struct {
	workspace    *workspace.Manager
	orchestrator *merge.Orchestrator
}

func buildServices(cfg config.AppConfig) (*services, error) {
	ws, err := workspace.New(cfg.UploadRoot(), cfg.OutputRoot(), log.WithComponent("workspace"))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	runner := ffmpeg.NewRunner(cfg.FFmpeg.Bin, log.WithComponent("ffmpeg"))
	runner.KillGrace = cfg.FFmpeg.KillGrace

	prober := ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin, log.WithComponent("ffprobe"))

	cards := textcard.New(runner, textcard.Options{
		FontPatterns: cfg.TextCard.FontPatterns,
		FPS:          cfg.TextCard.FPS,
		Preset:       cfg.FFmpeg.Preset,
	}, log.WithComponent("textcard"))

	orch := merge.New(mergeConfig(cfg), ws, prober, cards, runner, log.WithComponent("merge"))
	return &services{workspace: ws, orchestrator: orch}, nil
}

func mergeConfig(cfg config.AppConfig) merge.Config {
	mc := merge.DefaultConfig()
	mc.Timeout = cfg.FFmpeg.MergeTimeout
	mc.Filter = filtergraph.DefaultOptions()
	if cfg.FFmpeg.Preset != "" {
		mc.Filter.Preset = cfg.FFmpeg.Preset
	}
	if len(cfg.Upload.AllowedExtensions) > 0 {
		mc.AllowedExtensions = media.NewExtensionSet(cfg.Upload.AllowedExtensions)
	}
	if cfg.TextCard.DefaultDuration > 0 {
		mc.CardDuration = cfg.TextCard.DefaultDuration.Seconds()
	}
	return mc
}
