// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldItemID    = "item_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Storage fields
	FieldSink      = "sink"
	FieldOperation = "op"
	FieldPath      = "path"

	// Batch fields
	FieldEvents = "events"
	FieldReset  = "reset"
	FieldBytes  = "bytes"

	// HTTP fields
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
	FieldDuration   = "duration"
)
