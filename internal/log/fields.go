// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldState     = "state"
	FieldStage     = "stage"
	FieldTool      = "tool"

	// Media fields
	FieldResolution = "resolution"
	FieldDuration   = "duration_s"
	FieldHasAudio   = "has_audio"
	FieldItems      = "items"
	FieldIndex      = "index"
	FieldKind       = "kind"

	// Path fields
	FieldPath       = "path"
	FieldOutputPath = "output_path"
	FieldFilename   = "filename"

	// Diagnostics
	FieldStderr = "stderr"
)
