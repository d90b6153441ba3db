// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media holds the merge data model: probed clip metadata, the ordered
// timeline of clips and the canonical output geometry. It performs no I/O.
package media

import "fmt"

// VideoInfo is the display-oriented metadata of one clip. Width and Height are
// the displayed dimensions (already corrected for 90/270 degree rotation).
// Duration is in seconds and is 0 when it could not be determined.
type VideoInfo struct {
	Width    int
	Height   int
	Duration float64
	HasAudio bool
}

// Resolution formats the geometry as WxH for logs.
func (v VideoInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Kind discriminates timeline entries.
type Kind int

const (
	KindVideo Kind = iota
	KindTextCard
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindTextCard:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SequenceItem is one clip in final playback order.
type SequenceItem struct {
	Kind Kind
	Path string
	Info VideoInfo
}

// FinalSequence is the ordered timeline handed to the filter-graph compiler.
type FinalSequence []SequenceItem

// TotalDuration sums the nominal durations of all items.
func (s FinalSequence) TotalDuration() float64 {
	var total float64
	for _, it := range s {
		total += it.Info.Duration
	}
	return total
}

// Validate checks the structural invariants: at least two items and at least
// one uploaded video.
func (s FinalSequence) Validate() error {
	if len(s) < MinItems {
		return &ValidationError{Reason: ReasonTooFewItems}
	}
	for _, it := range s {
		if it.Kind == KindVideo {
			return nil
		}
	}
	return &ValidationError{Reason: ReasonNoVideo}
}

// Geometry is the canonical output size. Both dimensions are even.
type Geometry struct {
	Width  int
	Height int
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Matches reports whether info already has exactly the canonical size.
func (g Geometry) Matches(info VideoInfo) bool {
	return info.Width == g.Width && info.Height == g.Height
}
