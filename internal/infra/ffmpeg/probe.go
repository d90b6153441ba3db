package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vmerge/internal/domain/media"
	xglog "github.com/ManuGH/vmerge/internal/log"
)

const probeStderrLimit = 4096

var _ media.Prober = (*Prober)(nil)

// Prober implements media.Prober using ffprobe.
type Prober struct {
	runner *Runner
	logger zerolog.Logger
}

// NewProber returns a Prober running bin (defaults to "ffprobe").
func NewProber(bin string, logger zerolog.Logger) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	r := NewRunner(bin, logger)
	r.TailBytes = probeStderrLimit
	return &Prober{runner: r, logger: logger}
}

// Probe executes ffprobe and returns the display geometry, duration and audio
// presence of path.
func (p *Prober) Probe(ctx context.Context, path string) (media.VideoInfo, error) {
	res, err := p.runner.Run(ctx, ProbeArgs(path)...)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return media.VideoInfo{}, &media.ProbeError{
				Path:   path,
				Reason: "ffprobe failed",
				Stderr: media.Tail(strings.TrimSpace(exitErr.Stderr), probeStderrLimit),
				Err:    exitErr.Err,
			}
		}
		// Start failure or interruption: unclassified, reported as a 5xx.
		return media.VideoInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}

	info, err := ParseProbeOutput(path, res.Stdout)
	if err != nil {
		return media.VideoInfo{}, err
	}

	logger := xglog.WithContext(ctx, p.logger)
	if info.Duration == 0 {
		logger.Warn().
			Str(xglog.FieldEvent, "probe.duration_unknown").
			Str(xglog.FieldPath, path).
			Msg("could not determine duration, continuing with 0")
	}
	logger.Debug().
		Str(xglog.FieldEvent, "probe.done").
		Str(xglog.FieldPath, path).
		Str(xglog.FieldResolution, info.Resolution()).
		Float64(xglog.FieldDuration, info.Duration).
		Bool(xglog.FieldHasAudio, info.HasAudio).
		Msg("probed media")
	return info, nil
}

// ParseProbeOutput turns ffprobe JSON into VideoInfo. The first video stream
// supplies the dimensions, the first audio stream only sets HasAudio, and only
// the first side-data entry of the video stream is inspected for rotation.
func ParseProbeOutput(path string, out []byte) (media.VideoInfo, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return media.VideoInfo{}, &media.ProbeError{Path: path, Reason: "unreadable ffprobe output", Err: err}
	}

	var video *probeStream
	hasAudio := false
	for i := range data.Streams {
		s := &data.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return media.VideoInfo{}, &media.ProbeError{Path: path, Reason: "no video stream"}
	}

	width, height := video.Width, video.Height
	if len(video.SideDataList) > 0 {
		rot := math.Round(math.Abs(float64(video.SideDataList[0].Rotation)))
		if rot == 90 || rot == 270 {
			width, height = height, width
		}
	}
	if width <= 0 || height <= 0 {
		return media.VideoInfo{}, &media.ProbeError{Path: path, Reason: "video stream has no dimensions"}
	}

	duration := parseSeconds(video.Duration)
	if duration == 0 {
		duration = parseSeconds(data.Format.Duration)
	}

	return media.VideoInfo{
		Width:    width,
		Height:   height,
		Duration: duration,
		HasAudio: hasAudio,
	}, nil
}

// parseSeconds returns 0 for absent, "N/A", negative or malformed values.
func parseSeconds(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

type probeData struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string          `json:"codec_type"`
	Width        int             `json:"width,omitempty"`
	Height       int             `json:"height,omitempty"`
	Duration     string          `json:"duration,omitempty"`
	SideDataList []probeSideData `json:"side_data_list,omitempty"`
}

type probeSideData struct {
	Rotation rotation `json:"rotation"`
}

// rotation tolerates the numeric and string encodings different ffprobe
// builds emit; anything unparsable counts as no rotation.
type rotation float64

func (r *rotation) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*r = 0
		return nil
	}
	*r = rotation(v)
	return nil
}
