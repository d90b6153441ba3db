// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package textcard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// DefaultFontPatterns lists CJK-capable fonts first, then broad Latin
// coverage. The first pattern with a match wins.
func DefaultFontPatterns() []string {
	return []string{
		"/usr/share/fonts/opentype/noto/NotoSans*CJK*Regular*.ttc",
		"/usr/share/fonts/opentype/noto/NotoSans*Regular*.ttf",
		"/usr/share/fonts/truetype/noto/NotoSans*Regular*.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}
}

// FindFont returns the first file matching patterns, in pattern order, or
// "" when none match. Malformed patterns are skipped.
func FindFont(patterns []string) string {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		return matches[0]
	}
	return ""
}

// FontSource produces faces at arbitrary pixel sizes. A nil font means the
// fixed-size bitmap fallback.
type FontSource struct {
	font *sfnt.Font
}

// LoadFontSource parses the font at path. An empty path selects the bitmap
// fallback.
func LoadFontSource(path string) (FontSource, error) {
	if path == "" {
		return FontSource{}, nil
	}
	// #nosec G304 -- path comes from the configured font glob list
	data, err := os.ReadFile(path)
	if err != nil {
		return FontSource{}, fmt.Errorf("read font %s: %w", path, err)
	}

	var f *sfnt.Font
	if strings.EqualFold(filepath.Ext(path), ".ttc") || strings.EqualFold(filepath.Ext(path), ".otc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return FontSource{}, fmt.Errorf("parse font collection %s: %w", path, err)
		}
		if f, err = coll.Font(0); err != nil {
			return FontSource{}, fmt.Errorf("font collection %s: %w", path, err)
		}
	} else {
		if f, err = opentype.Parse(data); err != nil {
			return FontSource{}, fmt.Errorf("parse font %s: %w", path, err)
		}
	}
	return FontSource{font: f}, nil
}

func (l FontSource) scalable() bool { return l.font != nil }

// bitmapCellHeight is the line height of basicfont.Face7x13.
const bitmapCellHeight = 13

// scale is the factor from face pixels to output pixels at size: 1 for
// scalable faces, size/13 for the bitmap fallback.
func (l FontSource) scale(size int) float64 {
	if l.scalable() {
		return 1
	}
	return float64(size) / bitmapCellHeight
}

// face returns a face whose em size is size pixels. The bitmap fallback
// ignores size; callers apply scale.
func (l FontSource) face(size int) (font.Face, error) {
	if l.font == nil {
		return basicfont.Face7x13, nil
	}
	if size < 1 {
		size = 1
	}
	return opentype.NewFace(l.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
