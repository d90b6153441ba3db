// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// MinItems is the smallest timeline that can be merged.
	MinItems = 2
	// MinCardDuration is the lower clamp for text card durations, in seconds.
	MinCardDuration = 0.5
	// DefaultCardDuration applies when a text item carries no duration.
	DefaultCardDuration = 3.0
)

// Item type tags used on the wire.
const (
	TypeVideo = "video"
	TypeText  = "text"
)

// Seconds is a duration in seconds that accepts a JSON number or a numeric
// string ("2.5").
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("duration %q is not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("duration %q is not finite", raw)
	}
	*s = Seconds(v)
	return nil
}

// Descriptor is one requested timeline slot as submitted by the client:
// {"type": "video"} or {"type": "text", "text": "...", "duration": 3}.
type Descriptor struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Duration *Seconds `json:"duration,omitempty"`
}

// Kind maps the wire type onto a Kind. ok is false for unknown types.
func (d Descriptor) Kind() (k Kind, ok bool) {
	switch d.Type {
	case TypeVideo:
		return KindVideo, true
	case TypeText:
		return KindTextCard, true
	default:
		return 0, false
	}
}

// CardDuration returns the clamped duration for a text card slot.
func (d Descriptor) CardDuration() float64 {
	return d.CardDurationOr(DefaultCardDuration)
}

// CardDurationOr is CardDuration with def applied to slots that carry no
// duration.
func (d Descriptor) CardDurationOr(def float64) float64 {
	dur := def
	if d.Duration != nil {
		dur = float64(*d.Duration)
	}
	return math.Max(MinCardDuration, dur)
}

// ParseDescriptors decodes the JSON item list.
func ParseDescriptors(raw string) ([]Descriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ValidationError{Reason: ReasonMissingItems}
	}
	var items []Descriptor
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &ValidationError{Reason: ReasonMalformedItems, Detail: err.Error()}
	}
	return items, nil
}

// ExtensionSet is a case-insensitive set of allowed file extensions without
// the leading dot.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from entries such as "mp4" or ".MOV".
func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Extension returns the lower-cased extension of name and whether it is allowed.
func (s ExtensionSet) Extension(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", false
	}
	_, ok := s[ext]
	return ext, ok
}

// ValidateRequest enforces the request shape before any file is staged:
// enough items, known item types, at least one video, one upload per video
// item, and allowed extensions on every upload.
func ValidateRequest(items []Descriptor, filenames []string, allowed ExtensionSet) error {
	if len(items) < MinItems {
		return &ValidationError{Reason: ReasonTooFewItems}
	}

	videos := 0
	for i, it := range items {
		k, ok := it.Kind()
		if !ok {
			return &ValidationError{Reason: ReasonUnknownItemType, Detail: fmt.Sprintf("item %d has type %q", i, it.Type)}
		}
		if k == KindVideo {
			videos++
		}
	}
	if videos == 0 {
		return &ValidationError{Reason: ReasonNoVideo}
	}
	if len(filenames) != videos {
		return &ValidationError{
			Reason: ReasonCountMismatch,
			Detail: fmt.Sprintf("%d video items, %d files", videos, len(filenames)),
		}
	}

	for _, name := range filenames {
		if _, ok := allowed.Extension(name); !ok {
			return &ValidationError{Reason: ReasonUnsupportedFormat, Filename: name}
		}
	}
	return nil
}
