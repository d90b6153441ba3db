// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/vmerge/internal/domain/media"
)

// Attribute keys shared by merge spans.
const (
	MergeSessionKey   = "merge.session_id"
	MergeItemsKey     = "merge.items"
	MergeVideosKey    = "merge.videos"
	MergeCardsKey     = "merge.text_cards"
	MergeResolution   = "merge.resolution"
	MergeDurationKey  = "merge.duration_s"
	ClipIndexKey      = "clip.index"
	ClipKindKey       = "clip.kind"
	ClipResolutionKey = "clip.resolution"
	ClipDurationKey   = "clip.duration_s"
	ClipHasAudioKey   = "clip.has_audio"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// MergeAttributes describes one merge request.
func MergeAttributes(sessionID string, items, videos, cards int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MergeSessionKey, sessionID),
		attribute.Int(MergeItemsKey, items),
		attribute.Int(MergeVideosKey, videos),
		attribute.Int(MergeCardsKey, cards),
	}
}

// SequenceAttributes describes the planned output.
func SequenceAttributes(geom media.Geometry, seq media.FinalSequence) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MergeResolution, geom.String()),
		attribute.Float64(MergeDurationKey, seq.TotalDuration()),
	}
}

// ClipAttributes describes one timeline entry.
func ClipAttributes(index int, kind media.Kind, info media.VideoInfo) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ClipIndexKey, index),
		attribute.String(ClipKindKey, kind.String()),
		attribute.String(ClipResolutionKey, info.Resolution()),
		attribute.Float64(ClipDurationKey, info.Duration),
		attribute.Bool(ClipHasAudioKey, info.HasAudio),
	}
}

// ErrorAttributes tags a span with the taxonomy code of err.
func ErrorAttributes(err error) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, media.Code(err)),
	}
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(err)...)
}
