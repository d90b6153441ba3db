// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

// ResolveGeometry derives the canonical geometry from the uploaded videos:
// the maximum width and the maximum height, each rounded up to even on its own.
// Text cards must not be passed in; they are rendered at the result.
// ok is false for an empty input.
func ResolveGeometry(infos []VideoInfo) (g Geometry, ok bool) {
	if len(infos) == 0 {
		return Geometry{}, false
	}
	for _, info := range infos {
		if info.Width > g.Width {
			g.Width = info.Width
		}
		if info.Height > g.Height {
			g.Height = info.Height
		}
	}
	g.Width = roundUpEven(g.Width)
	g.Height = roundUpEven(g.Height)
	return g, true
}

// libx264 with yuv420p rejects odd dimensions.
func roundUpEven(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
