// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation reasons. They double as metric label values.
const (
	ReasonMissingItems      = "missing_items"
	ReasonMalformedItems    = "malformed_items"
	ReasonTooFewItems       = "too_few_items"
	ReasonNoVideo           = "no_video"
	ReasonCountMismatch     = "count_mismatch"
	ReasonUnsupportedFormat = "unsupported_format"
	ReasonUnknownItemType   = "unknown_item_type"
	ReasonPayloadTooLarge   = "payload_too_large"
	ReasonMalformedRequest  = "malformed_request"
)

// ValidationError reports a malformed request. It is always the caller's
// fault and is raised before anything is staged or executed.
type ValidationError struct {
	Reason   string
	Filename string
	Detail   string
}

func (e *ValidationError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonMissingItems:
		msg = "item list is missing"
	case ReasonMalformedItems:
		msg = "item list is malformed"
	case ReasonTooFewItems:
		msg = fmt.Sprintf("at least %d items are required", MinItems)
	case ReasonNoVideo:
		msg = "at least one video file is required"
	case ReasonCountMismatch:
		msg = "number of uploaded videos does not match the video items"
	case ReasonUnsupportedFormat:
		msg = "unsupported file format: " + e.Filename
	case ReasonUnknownItemType:
		msg = "unknown item type"
	case ReasonPayloadTooLarge:
		msg = "upload exceeds the size limit"
	case ReasonMalformedRequest:
		msg = "request is not a valid multipart upload"
	default:
		msg = "invalid request"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ProbeError reports an input that ffprobe could not read or that carries no
// video stream. It is attributable to one uploaded file.
type ProbeError struct {
	Path   string
	Reason string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	msg := "probe " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }

// RenderError reports a failed text card encode. Text itself is never
// invalid, so this is an internal fault.
type RenderError struct {
	Reason string
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	msg := "text card generation failed: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// MergeError reports a failed or timed-out final encode.
type MergeError struct {
	Timeout bool
	Reason  string
	Stderr  string
	Err     error
}

func (e *MergeError) Error() string {
	msg := "merge failed"
	if e.Timeout {
		msg = "merge timed out"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *MergeError) Unwrap() error { return e.Err }

// HTTPStatus maps the error taxonomy onto response codes.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		pe *ProbeError
		re *RenderError
		me *MergeError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		if ve.Reason == ReasonPayloadTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &re):
		return http.StatusInternalServerError
	case errors.As(err, &me):
		if me.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	var (
		ve *ValidationError
		pe *ProbeError
		re *RenderError
		me *MergeError
	)
	switch {
	case errors.As(err, &ve):
		return "VALIDATION_FAILED"
	case errors.As(err, &pe):
		return "PROBE_FAILED"
	case errors.As(err, &re):
		return "RENDER_FAILED"
	case errors.As(err, &me):
		if me.Timeout {
			return "MERGE_TIMEOUT"
		}
		return "MERGE_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Tail returns at most the last n bytes of s, trimmed to a rune boundary.
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	for i := 0; i < len(s) && i < 4; i++ {
		if s[i]&0xC0 != 0x80 {
			return s[i:]
		}
	}
	return s
}
