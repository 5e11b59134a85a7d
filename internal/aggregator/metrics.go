// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package aggregator

import (
	"errors"

	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcome labels.
const (
	outcomePersisted = "persisted"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatesink",
		Name:      "batches_total",
		Help:      "Update batches processed, by outcome",
	}, []string{"outcome"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatesink",
		Name:      "events_total",
		Help:      "Update events persisted, by post type",
	}, []string{"type"})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "updatesink",
		Name:      "resets_total",
		Help:      "Log truncations triggered by the start sentinel",
	})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatesink",
		Name:      "storage_errors_total",
		Help:      "Failed sink operations",
	}, []string{"sink", "op"})

	appendedBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatesink",
		Name:      "appended_bytes_total",
		Help:      "Bytes appended to each log",
	}, []string{"log"})
)

func recordStorageError(err error) {
	var se *sink.StorageError
	if errors.As(err, &se) {
		storageErrorsTotal.WithLabelValues(se.Sink, se.Op).Inc()
		return
	}
	storageErrorsTotal.WithLabelValues("unknown", "unknown").Inc()
}
