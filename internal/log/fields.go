// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldItemID    = "item_id"
	FieldJobID     = "job_id"

	// Process fields
	FieldComponent = "component"
	FieldEvent     = "event"

	// Media / artifact fields
	FieldWidth     = "width"
	FieldInterval  = "interval_ms"
	FieldTileCount = "tile_count"
	FieldSegments  = "segments"
	FieldBandwidth = "bandwidth"
	FieldLanguage  = "language"
	FieldFamily    = "script_family"

	// Path fields
	FieldPath      = "path"
	FieldDir       = "dir"
	FieldFinalPath = "final_path"
)
