// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID   = "request_id"
	FieldRecordingID = "recording_id"
	FieldItemID      = "item_id"
	FieldPresetID    = "preset_id"
	FieldEventID     = "event_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Stream fields
	FieldStreamName = "stream_name"
	FieldStreamURL  = "stream_url"
	FieldRecurrence = "recurrence"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath       = "path"
	FieldOutputPath = "output_path"
)
