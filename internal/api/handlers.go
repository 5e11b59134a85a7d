// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/updatesink/internal/api/problem"
	"github.com/ManuGH/updatesink/internal/events"
	"github.com/ManuGH/updatesink/internal/log"
	"github.com/ManuGH/updatesink/internal/sink"
)

// UpdateResponse is the body of a persisted batch.
type UpdateResponse struct {
	Status    string `json:"status"`
	Events    int    `json:"events"`
	Reset     bool   `json:"reset"`
	RequestID string `json:"requestId,omitempty"`
}

// DumpResponse is the body of a stored dump.
type DumpResponse struct {
	Status    string `json:"status"`
	Bytes     int    `json:"bytes"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	payload, ok, err := extractPost(w, r, s.deps.MaxBodyBytes)
	if err != nil {
		writeTooLarge(w, r, s.deps.MaxBodyBytes)
		return
	}
	if !ok {
		logNoOp(r, "update")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, err := s.deps.Processor.Process(r.Context(), payload)
	if err != nil {
		writeProcessError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, UpdateResponse{
		Status:    "ok",
		Events:    res.Events,
		Reset:     res.Reset,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) handleReadBack(store sink.Sink, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := store.ReadAll(r.Context())
		if err != nil {
			writeProcessError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleDumpWrite(w http.ResponseWriter, r *http.Request) {
	payload, ok, err := extractPost(w, r, s.deps.MaxBodyBytes)
	if err != nil {
		writeTooLarge(w, r, s.deps.MaxBodyBytes)
		return
	}
	if !ok {
		logNoOp(r, "dump")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.deps.Dump.Replace(r.Context(), []byte(payload)); err != nil {
		writeProcessError(w, r, err)
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "dump")
	logger.Info().
		Str(log.FieldEvent, "dump.replaced").
		Int(log.FieldBytes, len(payload)).
		Msg("dump artifact replaced")

	writeJSON(w, r, http.StatusOK, DumpResponse{
		Status:    "ok",
		Bytes:     len(payload),
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) handleDumpRead(w http.ResponseWriter, r *http.Request) {
	data, ok, err := s.deps.Dump.Read(r.Context())
	if err != nil {
		writeProcessError(w, r, err)
		return
	}
	if !ok {
		problem.Write(w, r, http.StatusNotFound, "dump/not_found", "Not Found", problem.CodeNotFound,
			"no dump has been stored", nil)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// writeProcessError maps parse and storage failures onto problem responses.
func writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *events.ParseError
	var se *sink.StorageError
	switch {
	case errors.As(err, &pe):
		extra := map[string]any{}
		if pe.Index >= 0 {
			extra["index"] = pe.Index
		}
		if pe.Field != "" {
			extra["field"] = pe.Field
		}
		problem.Write(w, r, http.StatusBadRequest, "update/invalid_batch", "Invalid Batch",
			problem.CodeInvalidBatch, pe.Error(), extra)
	case errors.As(err, &se):
		problem.Write(w, r, http.StatusInternalServerError, "update/storage_failure", "Storage Failure",
			problem.CodeStorageFailure, "the request was not fully persisted",
			map[string]any{"sink": se.Sink, "operation": se.Op})
	case errors.Is(err, events.ErrParse):
		problem.Write(w, r, http.StatusBadRequest, "update/invalid_batch", "Invalid Batch",
			problem.CodeInvalidBatch, err.Error(), nil)
	case errors.Is(err, sink.ErrStorage):
		problem.Write(w, r, http.StatusInternalServerError, "update/storage_failure", "Storage Failure",
			problem.CodeStorageFailure, "the request was not fully persisted", nil)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "request.failed").
			Msg("unclassified handler error")
		problem.Write(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error",
			problem.CodeInternal, "", nil)
	}
}

func writeTooLarge(w http.ResponseWriter, r *http.Request, limit int64) {
	problem.Write(w, r, http.StatusRequestEntityTooLarge, "system/payload_too_large", "Payload Too Large",
		problem.CodeTooLarge, "request body exceeds "+strconv.FormatInt(limit, 10)+" bytes", nil)
}

func logNoOp(r *http.Request, route string) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().
		Str(log.FieldEvent, "request.noop").
		Str("route", route).
		Msg("post field absent, nothing to do")
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "response.encode_failed").Msg("failed to encode response")
	}
}
