// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultFFprobeBin = "ffprobe"

// ResolveFFprobeBin returns the ffprobe binary to use.
//
// Resolution order:
//  1. explicit ffprobeBin (VMERGE_FFPROBE_BIN / ffmpeg.ffprobeBin)
//  2. the ffprobe sibling of a concrete ffmpeg path, if it exists
//  3. "ffprobe", resolved through PATH at run time
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if ffprobeBin = strings.TrimSpace(ffprobeBin); ffprobeBin != "" {
		return ffprobeBin
	}

	ffmpegBin = strings.TrimSpace(ffmpegBin)
	// A bare "ffmpeg" is a PATH lookup; guessing a sibling would be wrong.
	if !strings.ContainsRune(ffmpegBin, '/') || filepath.Base(ffmpegBin) != "ffmpeg" {
		return defaultFFprobeBin
	}

	candidate := filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
	if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
		return candidate
	}
	return defaultFFprobeBin
}
