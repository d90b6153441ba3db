// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "context"

// Prober reads display geometry, duration and audio presence of a file.
// Implementations return *ProbeError on failure.
type Prober interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
}

// CardRenderer produces a silent clip of the given duration and geometry
// showing text, written to outPath. Implementations return *RenderError on
// encoder failure.
type CardRenderer interface {
	Render(ctx context.Context, text string, duration float64, geom Geometry, outPath string) error
}
