// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package aggregator

import (
	"context"

	"github.com/ManuGH/updatesink/internal/events"
	"github.com/ManuGH/updatesink/internal/sink"
)

// jsonSeparator terminates every JSON log entry with a blank line.
const jsonSeparator = "\n\n"

// Writer appends a batch to the text and JSON logs and re-applies the access policy.
//
// The two appends are independent operations. A failure or crash between them
// can leave the logs inconsistent with each other; no cross-sink transaction exists.
type Writer struct {
	text   sink.Sink
	json   sink.Sink
	policy sink.AccessPolicy
}

// NewWriter returns a writer over the given sinks.
func NewWriter(text, json sink.Sink, policy sink.AccessPolicy) *Writer {
	return &Writer{text: text, json: json, policy: policy}
}

// WriteStats reports the bytes appended to each log.
type WriteStats struct {
	TextBytes int
	JSONBytes int
}

// Write performs at most one append per sink, then applies the policy to both.
// An empty batch skips the text append but still logs the raw payload.
func (w *Writer) Write(ctx context.Context, b events.Batch) (WriteStats, error) {
	var stats WriteStats

	if b.Len() > 0 {
		records := b.TextRecords()
		if err := w.text.Append(ctx, records); err != nil {
			return stats, err
		}
		stats.TextBytes = len(records)
	}

	entry := make([]byte, 0, len(b.Raw)+len(jsonSeparator))
	entry = append(entry, b.Raw...)
	entry = append(entry, jsonSeparator...)
	if err := w.json.Append(ctx, entry); err != nil {
		return stats, err
	}
	stats.JSONBytes = len(entry)

	if err := w.text.ApplyPolicy(ctx, w.policy); err != nil {
		return stats, err
	}
	if err := w.json.ApplyPolicy(ctx, w.policy); err != nil {
		return stats, err
	}
	return stats, nil
}
