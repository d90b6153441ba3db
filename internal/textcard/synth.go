// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package textcard

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/infra/ffmpeg"
	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/metrics"
)

// stderrTailBytes bounds the encoder output carried in a RenderError.
const stderrTailBytes = 1000

const (
	defaultFPS    = 30
	defaultPreset = "fast"
)

// Encoder runs one ffmpeg invocation.
type Encoder interface {
	Run(ctx context.Context, args ...string) (ffmpeg.Result, error)
}

// Options configures a Synthesizer. Zero values take the defaults.
type Options struct {
	FontPatterns []string
	FPS          int
	Preset       string
}

// Synthesizer renders text cards to silent H.264 clips. It satisfies
// media.CardRenderer.
type Synthesizer struct {
	enc    Encoder
	opts   Options
	font   FontSource
	logger zerolog.Logger
}

var _ media.CardRenderer = (*Synthesizer)(nil)

// New returns a Synthesizer encoding through enc. The font is resolved and
// parsed once here and shared by every card.
func New(enc Encoder, opts Options, logger zerolog.Logger) *Synthesizer {
	if opts.FontPatterns == nil {
		opts.FontPatterns = DefaultFontPatterns()
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	if opts.Preset == "" {
		opts.Preset = defaultPreset
	}
	return &Synthesizer{enc: enc, opts: opts, font: resolveFont(opts.FontPatterns, logger), logger: logger}
}

func resolveFont(patterns []string, logger zerolog.Logger) FontSource {
	fontPath := FindFont(patterns)
	if fontPath == "" {
		logger.Warn().
			Str(xglog.FieldEvent, "textcard.font_missing").
			Msg("no scalable font found, using bitmap fallback")
		return FontSource{}
	}
	src, err := LoadFontSource(fontPath)
	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "textcard.font_unusable").
			Str(xglog.FieldPath, fontPath).
			Msg("font could not be loaded, using bitmap fallback")
		return FontSource{}
	}
	logger.Info().
		Str(xglog.FieldEvent, "textcard.font_loaded").
		Str(xglog.FieldPath, fontPath).
		Msg("text card font loaded")
	return src
}

// CardArgs returns the ffmpeg arguments that loop a still frame into a
// clip of duration seconds. Global flags are not included.
func CardArgs(framePath string, duration float64, fps int, preset, outPath string) []string {
	return []string{
		"-loop", "1",
		"-i", framePath,
		"-t", strconv.FormatFloat(duration, 'f', -1, 64),
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	}
}

// Render draws text centered on a black geom-sized frame and encodes it as
// a duration-second clip at outPath. The intermediate still image never
// outlives the call.
func (s *Synthesizer) Render(ctx context.Context, text string, duration float64, geom media.Geometry, outPath string) error {
	logger := xglog.WithContext(ctx, s.logger)

	metrics.IncTextCard(s.font.scalable())

	img, layout, err := Rasterize(SplitLines(text), geom.Width, geom.Height, s.font)
	if err != nil {
		return &media.RenderError{Reason: "rasterize text", Err: err}
	}

	framePath := outPath + ".frame.png"
	defer func() { _ = os.Remove(framePath) }()
	if err := writePNG(framePath, img); err != nil {
		return &media.RenderError{Reason: "write frame", Err: err}
	}

	args := append(ffmpeg.GlobalArgs(), CardArgs(framePath, duration, s.opts.FPS, s.opts.Preset, outPath)...)
	if _, err := s.enc.Run(ctx, args...); err != nil {
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			return &media.RenderError{
				Reason: "ffmpeg exited",
				Stderr: media.Tail(exitErr.Stderr, stderrTailBytes),
				Err:    err,
			}
		}
		return &media.RenderError{Reason: "ffmpeg did not finish", Err: err}
	}

	logger.Debug().
		Str(xglog.FieldEvent, "textcard.rendered").
		Str(xglog.FieldResolution, geom.String()).
		Float64(xglog.FieldDuration, duration).
		Int("font_size", layout.FontSize).
		Int("lines", len(layout.Lines)).
		Msg("text card rendered")
	return nil
}

func writePNG(path string, img image.Image) (err error) {
	// #nosec G304 -- path is inside the session scratch directory
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
