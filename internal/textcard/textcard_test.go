// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package textcard

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/infra/ffmpeg"
)

func TestFindFont_FirstMatchingPatternWins(t *testing.T) {
	dir := t.TempDir()
	cjk := filepath.Join(dir, "NotoSansCJK-Regular.ttc")
	dejavu := filepath.Join(dir, "DejaVuSans.ttf")
	require.NoError(t, os.WriteFile(cjk, nil, 0o600))
	require.NoError(t, os.WriteFile(dejavu, nil, 0o600))

	tests := []struct {
		name     string
		patterns []string
		want     string
	}{
		{"cjk first", []string{filepath.Join(dir, "NotoSans*CJK*Regular*.ttc"), dejavu}, cjk},
		{"skips empty pattern", []string{filepath.Join(dir, "missing*.ttf"), dejavu}, dejavu},
		{"skips malformed pattern", []string{"[", dejavu}, dejavu},
		{"nothing found", []string{filepath.Join(dir, "*.otf")}, ""},
		{"no patterns", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindFont(tt.patterns))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{""}},
		{"   \n  ", []string{""}},
		{"Hello", []string{"Hello"}},
		{"Line one\nLine two", []string{"Line one", "Line two"}},
		{"a\r\nb", []string{"a", "b"}},
		{"\nTitle\n", []string{"Title"}},
		{"é", []string{"é"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLines(tt.in), "input %q", tt.in)
	}
}

func TestRasterize_BitmapFallbackCentersLine(t *testing.T) {
	img, layout, err := Rasterize([]string{"Hi"}, 320, 180, FontSource{})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 320, 180), img.Bounds())
	assert.Equal(t, 18, layout.FontSize)
	assert.Equal(t, 27, layout.LineHeight)
	assert.Equal(t, 76, layout.Top)
	require.Len(t, layout.Lines, 1)
	assert.Equal(t, 19, layout.Lines[0].Width, "7px cells scaled by 18/13")
	assert.Equal(t, 150, layout.Lines[0].X)

	assertOpaqueBlack(t, img, 0, 0)
	assertOpaqueBlack(t, img, 319, 179)
	assert.True(t, hasWhite(img), "text should leave white pixels")
}

func TestRasterize_BitmapFallbackScalesToFontSize(t *testing.T) {
	img, layout, err := Rasterize([]string{"Hello"}, 1920, 1080, FontSource{})
	require.NoError(t, err)
	require.Equal(t, 108, layout.FontSize)

	top, bottom, left, right := inkBounds(img)
	require.GreaterOrEqual(t, bottom, top, "text should leave white pixels")

	inkHeight := bottom - top + 1
	assert.GreaterOrEqual(t, inkHeight, layout.FontSize/2)
	assert.InDelta(t, 540, float64(top+bottom)/2, float64(layout.FontSize)/10)
	assert.InDelta(t, 960, float64(left+right)/2, float64(layout.FontSize)/4)
	assert.GreaterOrEqual(t, left, layout.Lines[0].X)
	assert.Less(t, right, layout.Lines[0].X+layout.Lines[0].Width)
}

func TestRasterize_BitmapFallbackShrinksLongLines(t *testing.T) {
	_, layout, err := Rasterize([]string{strings.Repeat("W", 60)}, 320, 180, FontSource{})
	require.NoError(t, err)
	assert.Less(t, layout.FontSize, 18)
	require.Len(t, layout.Lines, 1)
	assert.LessOrEqual(t, layout.Lines[0].Width, 320)
	assert.GreaterOrEqual(t, layout.Lines[0].X, 0)
}

func TestRasterize_BlankCardIsBlack(t *testing.T) {
	img, layout, err := Rasterize(SplitLines("  "), 64, 36, FontSource{})
	require.NoError(t, err)
	assert.Empty(t, layout.Lines)
	assert.False(t, hasWhite(img))
	assertOpaqueBlack(t, img, 32, 18)
}

func TestRasterize_MultiLineBlockIsVerticallyCentered(t *testing.T) {
	_, layout, err := Rasterize([]string{"one", "", "three"}, 640, 360, FontSource{})
	require.NoError(t, err)

	assert.Equal(t, 36, layout.FontSize)
	assert.Equal(t, 54, layout.LineHeight)
	assert.Equal(t, (360-3*54)/2, layout.Top)
	require.Len(t, layout.Lines, 2, "empty lines take space but draw nothing")
	assert.Equal(t, layout.Top, layout.Lines[0].Y)
	assert.Equal(t, layout.Top+2*54, layout.Lines[1].Y)
}

func TestRasterize_ScalableFontShrinksLongLines(t *testing.T) {
	src := goRegular(t)

	_, short, err := Rasterize([]string{"Hi"}, 320, 180, src)
	require.NoError(t, err)
	assert.Equal(t, 18, short.FontSize)

	long := strings.Repeat("W", 60)
	_, shrunk, err := Rasterize([]string{long}, 320, 180, src)
	require.NoError(t, err)
	assert.Less(t, shrunk.FontSize, 18)
	require.Len(t, shrunk.Lines, 1)
	assert.LessOrEqual(t, shrunk.Lines[0].Width, 320)
	assert.GreaterOrEqual(t, shrunk.Lines[0].X, 0)
}

func TestLoadFontSource(t *testing.T) {
	src, err := LoadFontSource("")
	require.NoError(t, err)
	assert.False(t, src.scalable())

	_, err = LoadFontSource(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a font"), 0o600))
	_, err = LoadFontSource(garbage)
	assert.Error(t, err)

	assert.True(t, goRegular(t).scalable())
}

func TestCardArgs(t *testing.T) {
	got := CardArgs("/s/text_001.mp4.frame.png", 2.5, 30, "fast", "/s/text_001.mp4")
	assert.Equal(t, []string{
		"-loop", "1",
		"-i", "/s/text_001.mp4.frame.png",
		"-t", "2.5",
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-an",
		"/s/text_001.mp4",
	}, got)
}

type fakeEncoder struct {
	args       []string
	frameSeen  bool
	err        error
	framePath  string
	frameBytes int64
}

func (f *fakeEncoder) Run(_ context.Context, args ...string) (ffmpeg.Result, error) {
	f.args = args
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			f.framePath = args[i+1]
			if st, err := os.Stat(f.framePath); err == nil {
				f.frameSeen = true
				f.frameBytes = st.Size()
			}
		}
	}
	return ffmpeg.Result{}, f.err
}

func TestSynthesizer_Render(t *testing.T) {
	enc := &fakeEncoder{}
	s := New(enc, Options{FontPatterns: []string{}}, zerolog.Nop())
	out := filepath.Join(t.TempDir(), "text_001.mp4")

	err := s.Render(context.Background(), "Hello\nWorld", 3, media.Geometry{Width: 320, Height: 180}, out)
	require.NoError(t, err)

	assert.True(t, enc.frameSeen, "frame must exist while ffmpeg runs")
	assert.Positive(t, enc.frameBytes)
	assert.NoFileExists(t, enc.framePath)
	assert.Equal(t, ffmpeg.GlobalArgs(), enc.args[:len(ffmpeg.GlobalArgs())])
	assert.Equal(t, out, enc.args[len(enc.args)-1])
	assert.Contains(t, strings.Join(enc.args, " "), "-t 3 -r 30")
}

func TestSynthesizer_ResolvesFontOnce(t *testing.T) {
	dir := t.TempDir()
	fontPath := filepath.Join(dir, "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0o600))

	enc := &fakeEncoder{}
	s := New(enc, Options{FontPatterns: []string{filepath.Join(dir, "*.ttf")}}, zerolog.Nop())
	require.True(t, s.font.scalable())

	// Later cards must not depend on the file still being readable.
	require.NoError(t, os.Remove(fontPath))
	for i := 0; i < 3; i++ {
		out := filepath.Join(dir, "text_00"+string(rune('0'+i))+".mp4")
		require.NoError(t, s.Render(context.Background(), "Hello", 1, media.Geometry{Width: 320, Height: 180}, out))
	}
	assert.True(t, s.font.scalable())
}

func TestSynthesizer_UnusableFontFallsBackToBitmap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("not a font"), 0o600))

	s := New(&fakeEncoder{}, Options{FontPatterns: []string{filepath.Join(dir, "*.ttf")}}, zerolog.Nop())
	assert.False(t, s.font.scalable())
	require.NoError(t, s.Render(context.Background(), "Hello", 1, media.Geometry{Width: 64, Height: 36}, filepath.Join(dir, "t.mp4")))
}

func TestSynthesizer_RenderExitErrorCarriesStderrTail(t *testing.T) {
	stderr := strings.Repeat("x", 1500) + "codec not found"
	enc := &fakeEncoder{err: &ffmpeg.ExitError{Tool: "ffmpeg", Err: errors.New("exit status 1"), Stderr: stderr}}
	s := New(enc, Options{FontPatterns: []string{}}, zerolog.Nop())
	out := filepath.Join(t.TempDir(), "text_000.mp4")

	err := s.Render(context.Background(), "card", 1, media.Geometry{Width: 64, Height: 36}, out)

	var re *media.RenderError
	require.ErrorAs(t, err, &re)
	assert.Len(t, re.Stderr, 1000)
	assert.True(t, strings.HasSuffix(re.Stderr, "codec not found"))
	assert.NoFileExists(t, enc.framePath, "frame is removed on failure too")
	assert.Equal(t, 500, media.HTTPStatus(err))
}

func TestSynthesizer_RenderTimeout(t *testing.T) {
	enc := &fakeEncoder{err: ffmpeg.ErrTimeout}
	s := New(enc, Options{FontPatterns: []string{}}, zerolog.Nop())

	err := s.Render(context.Background(), "card", 1, media.Geometry{Width: 64, Height: 36}, filepath.Join(t.TempDir(), "t.mp4"))

	var re *media.RenderError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, ffmpeg.ErrTimeout)
}

func goRegular(t *testing.T) FontSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o600))
	src, err := LoadFontSource(path)
	require.NoError(t, err)
	return src
}

func assertOpaqueBlack(t *testing.T, img *image.RGBA, x, y int) {
	t.Helper()
	c := img.RGBAAt(x, y)
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(0), c.B)
	assert.Equal(t, uint8(255), c.A)
}

// inkBounds returns the extent of bright pixels; bottom < top when none.
func inkBounds(img *image.RGBA) (top, bottom, left, right int) {
	b := img.Bounds()
	top, left = b.Max.Y, b.Max.X
	bottom, right = -1, -1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R > 128 {
				top, bottom = min(top, y), max(bottom, y)
				left, right = min(left, x), max(right, x)
			}
		}
	}
	return top, bottom, left, right
}

func hasWhite(img *image.RGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R > 200 && c.G > 200 && c.B > 200 {
				return true
			}
		}
	}
	return false
}
