// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package aggregator

import (
	"context"

	"github.com/ManuGH/updatesink/internal/events"
	"github.com/ManuGH/updatesink/internal/sink"
)

// ResetController truncates both logs when a batch carries the start sentinel.
type ResetController struct {
	text sink.Sink
	json sink.Sink
}

// NewResetController returns a controller over the given sinks.
func NewResetController(text, json sink.Sink) *ResetController {
	return &ResetController{text: text, json: json}
}

// NeedsReset reports whether b contains the start sentinel anywhere.
func (c *ResetController) NeedsReset(b events.Batch) bool {
	return b.HasStart()
}

// Apply truncates the text log and then the JSON log when b needs a reset.
// It must run before any record of b is written, so events ahead of the
// sentinel in the same batch survive while all earlier history is dropped.
func (c *ResetController) Apply(ctx context.Context, b events.Batch) (bool, error) {
	if !c.NeedsReset(b) {
		return false, nil
	}
	if err := c.text.Truncate(ctx); err != nil {
		return true, err
	}
	if err := c.json.Truncate(ctx); err != nil {
		return true, err
	}
	return true, nil
}
