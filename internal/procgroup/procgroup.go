// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts external tools (ffmpeg, ffprobe) as process group
// leaders so that a stuck encoder and any helpers it forked can be reaped
// together.
package procgroup
