// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package textcard

import (
	"image"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

// Layout constants of a card.
const (
	sizeDivisor     = 10  // base font size = height / sizeDivisor
	maxWidthRatio   = 0.9 // widest line may use this share of the width
	lineHeightRatio = 1.5
)

// SplitLines splits card text on line breaks. Blank text yields one empty
// line so the card renders as plain black.
func SplitLines(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return []string{""}
	}
	return strings.Split(norm.NFC.String(text), "\n")
}

// Layout describes where each line is drawn.
type Layout struct {
	FontSize   int
	LineHeight int
	Top        int
	Lines      []PlacedLine
}

// PlacedLine is one non-empty line with its top-left origin.
type PlacedLine struct {
	Text  string
	X, Y  int
	Width int
}

// Rasterize draws lines white on black into a width x height image. The
// font starts at height/10 and shrinks once so the widest line fits in 90%
// of the width. Each line's glyph box is centered in its line box. The
// bitmap fallback is drawn at its native size and scaled to the font size.
func Rasterize(lines []string, width, height int, src FontSource) (*image.RGBA, Layout, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	size := max(height/sizeDivisor, 1)
	face, err := src.face(size)
	if err != nil {
		return nil, Layout{}, err
	}

	if widest := float64(widestLine(face, lines)) * src.scale(size); widest > float64(width)*maxWidthRatio {
		size = max(int(float64(size)*float64(width)*maxWidthRatio/widest), 1)
		if face, err = src.face(size); err != nil {
			return nil, Layout{}, err
		}
	}

	layout := Layout{
		FontSize:   size,
		LineHeight: int(float64(size) * lineHeightRatio),
	}
	layout.Top = (height - layout.LineHeight*len(lines)) / 2

	scale := src.scale(size)
	m := face.Metrics()
	glyphHeight := int(math.Round(float64((m.Ascent + m.Descent).Ceil()) * scale))

	for i, line := range lines {
		if line == "" {
			continue
		}
		native := font.MeasureString(face, line).Ceil()
		w := int(math.Round(float64(native) * scale))
		pl := PlacedLine{
			Text:  line,
			X:     (width - w) / 2,
			Y:     layout.Top + i*layout.LineHeight,
			Width: w,
		}
		glyphTop := pl.Y + (layout.LineHeight-glyphHeight)/2
		if src.scalable() {
			d := &font.Drawer{Dst: img, Src: image.White, Face: face}
			d.Dot = fixed.Point26_6{X: fixed.I(pl.X), Y: fixed.I(glyphTop) + m.Ascent}
			d.DrawString(line)
		} else if w > 0 && glyphHeight > 0 {
			mask := drawNative(face, line, native)
			dst := image.Rect(pl.X, glyphTop, pl.X+w, glyphTop+glyphHeight)
			xdraw.NearestNeighbor.Scale(img, dst, mask, mask.Bounds(), draw.Over, nil)
		}
		layout.Lines = append(layout.Lines, pl)
	}
	return img, layout, nil
}

// drawNative renders line white on transparent at the face's own size.
func drawNative(face font.Face, line string, width int) *image.RGBA {
	m := face.Metrics()
	mask := image.NewRGBA(image.Rect(0, 0, width, (m.Ascent + m.Descent).Ceil()))
	d := &font.Drawer{Dst: mask, Src: image.White, Face: face, Dot: fixed.Point26_6{Y: m.Ascent}}
	d.DrawString(line)
	return mask
}

func widestLine(face font.Face, lines []string) int {
	widest := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > widest {
			widest = w
		}
	}
	return widest
}
