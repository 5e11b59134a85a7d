// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package aggregator persists update event batches into the text and JSON logs.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/updatesink/internal/events"
	xglog "github.com/ManuGH/updatesink/internal/log"
	"github.com/ManuGH/updatesink/internal/sink"
)

// Result summarizes one processed batch.
type Result struct {
	Events    int  `json:"events"`
	Reset     bool `json:"reset"`
	TextBytes int  `json:"textBytes"`
	JSONBytes int  `json:"jsonBytes"`
}

// Aggregator drives parse, reset and write for a single batch.
// Requests may call Process concurrently; each sink serializes its own writes
// but there is no lock spanning the pair.
type Aggregator struct {
	reset  *ResetController
	writer *Writer

	mu      sync.Mutex
	lastAt  time.Time
	lastErr string
}

// New wires an aggregator over the text and JSON sinks.
func New(text, json sink.Sink, policy sink.AccessPolicy) *Aggregator {
	return &Aggregator{
		reset:  NewResetController(text, json),
		writer: NewWriter(text, json, policy),
	}
}

// Process parses payload and persists it. Parse failures leave both logs untouched.
// Once the payload parses, persistence ignores cancellation of ctx.
// The returned error matches events.ErrParse or sink.ErrStorage.
func (a *Aggregator) Process(ctx context.Context, payload string) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "aggregator")

	batch, err := events.ParseBatch(payload)
	if err != nil {
		batchesTotal.WithLabelValues(outcomeRejected).Inc()
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "batch.rejected").
			Int(xglog.FieldBytes, len(payload)).
			Msg("rejected malformed update batch")
		return Result{}, err
	}

	res := Result{Events: batch.Len()}

	persistCtx := context.WithoutCancel(ctx)

	reset, err := a.reset.Apply(persistCtx, batch)
	res.Reset = reset
	if err != nil {
		return res, a.fail(ctx, batch, "reset", err)
	}
	if reset {
		resetsTotal.Inc()
		logger.Info().
			Str(xglog.FieldEvent, "batch.reset").
			Str(xglog.FieldItemID, batch.ItemID).
			Msg("start sentinel received, logs truncated")
	}

	stats, err := a.writer.Write(persistCtx, batch)
	res.TextBytes, res.JSONBytes = stats.TextBytes, stats.JSONBytes
	if err != nil {
		return res, a.fail(ctx, batch, "write", err)
	}

	a.record(nil)
	batchesTotal.WithLabelValues(outcomePersisted).Inc()
	appendedBytesTotal.WithLabelValues("text").Add(float64(stats.TextBytes))
	appendedBytesTotal.WithLabelValues("json").Add(float64(stats.JSONBytes))
	for _, e := range batch.Events {
		eventsTotal.WithLabelValues(e.Label()).Inc()
	}

	logger.Info().
		Str(xglog.FieldEvent, "batch.persisted").
		Str(xglog.FieldItemID, batch.ItemID).
		Int(xglog.FieldEvents, res.Events).
		Bool(xglog.FieldReset, res.Reset).
		Msg("update batch persisted")
	return res, nil
}

// LastBatch returns when the last well-formed batch finished and its storage
// error text, or "" if it was persisted. Rejected payloads are not recorded.
func (a *Aggregator) LastBatch() (time.Time, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAt, a.lastErr
}

func (a *Aggregator) record(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAt = time.Now()
	a.lastErr = ""
	if err != nil {
		a.lastErr = err.Error()
	}
}

func (a *Aggregator) fail(ctx context.Context, batch events.Batch, stage string, err error) error {
	a.record(err)
	batchesTotal.WithLabelValues(outcomeFailed).Inc()
	recordStorageError(err)
	logger := xglog.WithComponentFromContext(ctx, "aggregator")
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "storage.failed").
		Str("stage", stage).
		Str(xglog.FieldItemID, batch.ItemID).
		Int(xglog.FieldEvents, batch.Len()).
		Msg("update batch not persisted")
	return fmt.Errorf("%s batch: %w", stage, err)
}
