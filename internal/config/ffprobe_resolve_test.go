// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFFprobeBin(t *testing.T) {
	dir := t.TempDir()
	ffmpegBin := filepath.Join(dir, "ffmpeg")
	sibling := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(sibling, []byte("stub"), 0o755))

	tests := []struct {
		name    string
		ffprobe string
		ffmpeg  string
		want    string
	}{
		{"explicit wins", "/custom/ffprobe", ffmpegBin, "/custom/ffprobe"},
		{"derived sibling", "", ffmpegBin, sibling},
		{"bare ffmpeg uses PATH", "", "ffmpeg", "ffprobe"},
		{"missing sibling uses PATH", "", filepath.Join(t.TempDir(), "ffmpeg"), "ffprobe"},
		{"non-ffmpeg name uses PATH", "", filepath.Join(dir, "ffmpeg6"), "ffprobe"},
		{"empty ffmpeg uses PATH", "", "", "ffprobe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFFprobeBin(tt.ffprobe, tt.ffmpeg))
		})
	}
}
