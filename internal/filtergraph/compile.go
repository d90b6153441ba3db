// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package filtergraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/vmerge/internal/domain/media"
)

// Compile turns seq into an encoder plan writing to output. It is a pure
// function of its arguments: compiling the same inputs twice yields identical
// plans.
//
// Every item contributes exactly one video and one audio stream, produced in a
// single walk over seq; both concats are then built from that one list, so
// the audio of item i can never be paired with the video of item j.
func Compile(seq media.FinalSequence, geom media.Geometry, output string, opts Options) (Plan, error) {
	if err := seq.Validate(); err != nil {
		return Plan{}, err
	}
	if geom.Width <= 0 || geom.Height <= 0 || geom.Width%2 != 0 || geom.Height%2 != 0 {
		return Plan{}, fmt.Errorf("canonical geometry %s must be positive and even", geom)
	}
	if output == "" {
		return Plan{}, errors.New("output path is required")
	}
	if opts.SampleRate <= 0 {
		return Plan{}, fmt.Errorf("sample rate %d must be positive", opts.SampleRate)
	}

	plan := Plan{
		Inputs:  make([]string, 0, len(seq)),
		Streams: make([]Stream, 0, len(seq)),
		Output:  output,
		Options: opts,
	}
	for i, item := range seq {
		plan.Inputs = append(plan.Inputs, item.Path)
		plan.Streams = append(plan.Streams, compileStream(i, item.Info, geom, opts.SampleRate))
	}

	var vin, ain strings.Builder
	for _, s := range plan.Streams {
		vin.WriteString(s.VideoLabel)
		ain.WriteString(s.AudioLabel)
	}
	n := len(plan.Streams)
	plan.VideoConcat = fmt.Sprintf("%sconcat=n=%d:v=1:a=0%s", vin.String(), n, VideoOutLabel)
	plan.AudioConcat = fmt.Sprintf("%sconcat=n=%d:v=0:a=1%s", ain.String(), n, AudioOutLabel)
	return plan, nil
}

func compileStream(i int, info media.VideoInfo, geom media.Geometry, sampleRate int) Stream {
	s := Stream{
		Index:      i,
		VideoLabel: fmt.Sprintf("[v%d]", i),
		AudioLabel: fmt.Sprintf("[a%d]", i),
	}

	if geom.Matches(info) {
		// Already canonical: rescaling would only add resampling artifacts.
		s.VideoChain = fmt.Sprintf("[%d:v]setsar=1%s", i, s.VideoLabel)
	} else {
		s.VideoChain = fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1%s",
			i, geom.Width, geom.Height, geom.Width, geom.Height, s.VideoLabel,
		)
	}

	if info.HasAudio {
		s.AudioChain = fmt.Sprintf("[%d:a]aresample=%d%s", i, sampleRate, s.AudioLabel)
	} else {
		// Silence lasts exactly as long as this item, not the whole output.
		s.AudioChain = fmt.Sprintf("aevalsrc=0:c=stereo:s=%d:d=%.6f%s", sampleRate, info.Duration, s.AudioLabel)
	}
	return s
}
