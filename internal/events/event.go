// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package events decodes update event batches posted by instrumented harnesses.
package events

import "strings"

// Post types emitted by the updater client.
const (
	TypeFileCreated        = "FILE_CREATED"
	TypeFileModified       = "FILE_MODIFIED"
	TypeFileDeleted        = "FILE_DELETED"
	TypeMessagePosted      = "MESSAGE_POSTED"
	TypeConvergenceUpdated = "CONVERGENCE_UPDATED"
	TypeProgressUpdated    = "PROGRESS_UPDATED"
	TypeUpdaterStarted     = "UPDATER_STARTED"
	TypeUpdaterStopped     = "UPDATER_STOPPED"
)

// StartSentinel marks the start of a harness run. A batch carrying it resets persisted history.
const StartSentinel = TypeUpdaterStarted

var knownTypes = map[string]struct{}{
	TypeFileCreated:        {},
	TypeFileModified:       {},
	TypeFileDeleted:        {},
	TypeMessagePosted:      {},
	TypeConvergenceUpdated: {},
	TypeProgressUpdated:    {},
	TypeUpdaterStarted:     {},
	TypeUpdaterStopped:     {},
}

// UpdateEvent is a single progress event. Values are never modified after parsing.
type UpdateEvent struct {
	Type    string
	Message string
}

// IsStart reports whether the event is the start sentinel. Surrounding whitespace in Type is ignored.
func (e UpdateEvent) IsStart() bool {
	return strings.TrimSpace(e.Type) == StartSentinel
}

// Record renders the text log line "<type>=<message>\n".
func (e UpdateEvent) Record() string {
	return e.Type + "=" + e.Message + "\n"
}

// Label returns a bounded metric label for the event type.
func (e UpdateEvent) Label() string {
	t := strings.TrimSpace(e.Type)
	if _, ok := knownTypes[t]; ok {
		return t
	}
	return "other"
}

// Batch is the ordered set of events from one request.
type Batch struct {
	// ItemID and ClientKey are envelope fields sent by the updater client. Informational only.
	ItemID    string
	ClientKey string

	Events []UpdateEvent

	// Raw is the whitespace-trimmed payload exactly as received.
	Raw string
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b.Events)
}

// HasStart reports whether any event in the batch is the start sentinel.
// Every event is inspected; the batch is not modified.
func (b Batch) HasStart() bool {
	found := false
	for _, e := range b.Events {
		if e.IsStart() {
			found = true
		}
	}
	return found
}

// TextRecords concatenates the text log records of all events in batch order.
func (b Batch) TextRecords() []byte {
	var sb strings.Builder
	for _, e := range b.Events {
		sb.WriteString(e.Record())
	}
	return []byte(sb.String())
}
