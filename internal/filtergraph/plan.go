// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package filtergraph compiles a merge timeline into a single ffmpeg
// invocation: per-input scale/pad and audio normalization chains followed by
// one video and one audio concat. It never executes anything.
package filtergraph

import "strings"

// Output stream labels of the two concat filters.
const (
	VideoOutLabel = "[outv]"
	AudioOutLabel = "[outa]"
)

// Options are the encoder settings applied to the merged output.
type Options struct {
	SampleRate int    // common audio rate, Hz
	VideoCodec string // e.g. libx264
	AudioCodec string // e.g. aac
	Preset     string // x264 preset
	PixFmt     string // empty keeps the encoder default
}

// DefaultOptions returns H.264/AAC at 44.1 kHz with the "fast" preset.
func DefaultOptions() Options {
	return Options{
		SampleRate: 44100,
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Preset:     "fast",
	}
}

// Stream is one compiled input: its video and audio chains and the labels
// they produce. Video and audio of the same item always share an index.
type Stream struct {
	Index      int
	VideoChain string
	AudioChain string
	VideoLabel string
	AudioLabel string
}

// Plan is a fully specified encoder invocation.
type Plan struct {
	Inputs      []string
	Streams     []Stream
	VideoConcat string
	AudioConcat string
	Output      string
	Options     Options
}

// Filters returns all filter chains in graph order: every video chain, every
// audio chain, then the video and audio concats.
func (p Plan) Filters() []string {
	out := make([]string, 0, 2*len(p.Streams)+2)
	for _, s := range p.Streams {
		out = append(out, s.VideoChain)
	}
	for _, s := range p.Streams {
		out = append(out, s.AudioChain)
	}
	return append(out, p.VideoConcat, p.AudioConcat)
}

// FilterComplex is the -filter_complex argument.
func (p Plan) FilterComplex() string {
	return strings.Join(p.Filters(), ";")
}

// Args returns the ffmpeg arguments (without global flags such as -y).
func (p Plan) Args() []string {
	args := make([]string, 0, 2*len(p.Inputs)+20)
	for _, in := range p.Inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", p.FilterComplex(),
		"-map", VideoOutLabel,
		"-map", AudioOutLabel,
		"-c:v", p.Options.VideoCodec,
		"-c:a", p.Options.AudioCodec,
		"-preset", p.Options.Preset,
	)
	if p.Options.PixFmt != "" {
		args = append(args, "-pix_fmt", p.Options.PixFmt)
	}
	return append(args, "-movflags", "+faststart", p.Output)
}
