// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ManuGH/updatesink/internal/aggregator"
	"github.com/ManuGH/updatesink/internal/api/problem"
	"github.com/ManuGH/updatesink/internal/dump"
	"github.com/ManuGH/updatesink/internal/health"
	"github.com/ManuGH/updatesink/internal/log"
	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = sink.AccessPolicy{Group: strconv.Itoa(os.Getegid()), Mode: sink.DefaultMode}

type fixture struct {
	srv    *Server
	text   *sink.MemorySink
	json   *sink.MemorySink
	dumper *dump.Dumper
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	text, js := sink.NewMemorySink("text"), sink.NewMemorySink("json")
	dumper := dump.New(filepath.Join(t.TempDir(), "post.dat"), testPolicy)
	deps := Deps{
		Processor:    aggregator.New(text, js, testPolicy),
		TextLog:      text,
		JSONLog:      js,
		Dump:         dumper,
		Health:       health.NewManager("test"),
		MaxBodyBytes: 64 << 10,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := New(deps)
	require.NoError(t, err)
	return &fixture{srv: srv, text: text, json: js, dumper: dumper}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postRequest(path, payload string) *http.Request {
	return formRequest(path, url.Values{PostField: {payload}})
}

func multipartRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUpdate_ExampleScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.text.Append(ctx, []byte("FILE_CREATED=old.txt\n")))
	require.NoError(t, f.json.Append(ctx, []byte("{\"posts\":[]}\n\n")))

	payload := `{"item_id":"1","client_key":"k","posts":[{"type":"UPDATER_STARTED","message":""},{"type":"FILE_CREATED","message":"a.txt"}]}`
	rec := f.do(postRequest(PathUpdate, payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Events)
	assert.True(t, resp.Reset)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, rec.Header().Get(problem.HeaderRequestID), resp.RequestID)

	text := f.do(get(PathUpdateText))
	assert.Equal(t, http.StatusOK, text.Code)
	assert.Equal(t, "text/plain; charset=utf-8", text.Header().Get("Content-Type"))
	if diff := cmp.Diff("UPDATER_STARTED=\nFILE_CREATED=a.txt\n", text.Body.String()); diff != "" {
		t.Fatalf("text log mismatch (-want +got):\n%s", diff)
	}

	js := f.do(get(PathUpdateJSON))
	assert.Equal(t, http.StatusOK, js.Code)
	assert.Equal(t, payload+"\n\n", js.Body.String())
}

func TestUpdate_LegacyPathAndMultipart(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(postRequest(PathLegacy, `{"posts":[{"type":"A","message":"1"}]}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(multipartRequest(t, PathUpdate, map[string]string{
		PostField: `{"posts":[{"type":"B","message":"2"}]}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "A=1\nB=2\n", f.do(get(PathUpdateText)).Body.String())
}

func TestUpdate_NoOp(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"form without post field", func(*testing.T) *http.Request {
			return formRequest(PathUpdate, url.Values{"other": {"x"}})
		}},
		{"multipart without post field", func(t *testing.T) *http.Request {
			return multipartRequest(t, PathUpdate, map[string]string{"other": "x"})
		}},
		{"json body", func(*testing.T) *http.Request {
			req := httptest.NewRequest(http.MethodPost, PathUpdate, strings.NewReader(`{"posts":[]}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}},
		{"empty body", func(*testing.T) *http.Request {
			return httptest.NewRequest(http.MethodPost, PathUpdate, nil)
		}},
		{"broken multipart", func(*testing.T) *http.Request {
			req := httptest.NewRequest(http.MethodPost, PathUpdate, strings.NewReader("garbage"))
			req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
			return req
		}},
		{"query string only", func(*testing.T) *http.Request {
			return httptest.NewRequest(http.MethodPost, PathUpdate+"?post="+url.QueryEscape(`{"posts":[]}`), nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			require.NoError(t, f.text.Append(context.Background(), []byte("KEEP=1\n")))

			rec := f.do(tt.req(t))
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Empty(t, rec.Body.String())

			assert.Equal(t, "KEEP=1\n", f.do(get(PathUpdateText)).Body.String())
			assert.Empty(t, f.do(get(PathUpdateJSON)).Body.String())
			_, textCount, _ := f.text.Policy()
			_, jsonCount, _ := f.json.Policy()
			assert.Zero(t, textCount, "no-op must not re-apply policy")
			assert.Zero(t, jsonCount, "no-op must not re-apply policy")
		})
	}
}

func TestUpdate_MalformedPayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantIndex any
		wantField any
	}{
		{"not json", "{nope", nil, nil},
		{"empty", "", nil, nil},
		{"missing posts", `{"item_id":"1"}`, nil, "posts"},
		{"element without message", `{"posts":[{"type":"A","message":"1"},{"type":"B"}]}`, float64(1), "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			require.NoError(t, f.text.Append(context.Background(), []byte("KEEP=1\n")))

			rec := f.do(postRequest(PathUpdate, tt.payload))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeProblem(t, rec)
			assert.Equal(t, problem.CodeInvalidBatch, body["code"])
			assert.Equal(t, tt.wantIndex, body["index"])
			assert.Equal(t, tt.wantField, body["field"])
			assert.NotEmpty(t, body[problem.JSONKeyRequestID])

			assert.Equal(t, "KEEP=1\n", f.do(get(PathUpdateText)).Body.String())
			assert.Empty(t, f.do(get(PathUpdateJSON)).Body.String())
		})
	}
}

type failingProcessor struct{ err error }

func (p failingProcessor) Process(context.Context, string) (aggregator.Result, error) {
	return aggregator.Result{}, p.err
}

func TestUpdate_StorageFailure(t *testing.T) {
	storageErr := &sink.StorageError{Sink: "json", Op: sink.OpAppend, Err: errors.New("device full")}
	f := newFixture(t, func(d *Deps) {
		d.Processor = failingProcessor{err: errors.Join(errors.New("write batch"), storageErr)}
	})

	rec := f.do(postRequest(PathUpdate, `{"posts":[]}`))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeProblem(t, rec)
	assert.Equal(t, problem.CodeStorageFailure, body["code"])
	assert.Equal(t, "json", body["sink"])
	assert.Equal(t, sink.OpAppend, body["operation"])
	assert.NotContains(t, rec.Body.String(), "device full")
}

func TestUpdate_UnclassifiedError(t *testing.T) {
	var logs bytes.Buffer
	log.Configure(log.Config{Level: "info", Output: &logs})
	t.Cleanup(func() { log.Configure(log.Config{Level: "info"}) })

	f := newFixture(t, func(d *Deps) {
		d.Processor = failingProcessor{err: errors.New("boom")}
	})
	rec := f.do(postRequest(PathUpdate, `{"posts":[]}`))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, problem.CodeInternal, decodeProblem(t, rec)["code"])
	assert.NotContains(t, rec.Body.String(), "boom")

	assert.Contains(t, logs.String(), `"event":"request.failed"`)
	assert.Contains(t, logs.String(), `"error":"boom"`)
}

func TestUpdate_BodyTooLarge(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.MaxBodyBytes = 64 })

	rec := f.do(postRequest(PathUpdate, `{"posts":[{"type":"A","message":"`+strings.Repeat("x", 128)+`"}]}`))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, problem.CodeTooLarge, decodeProblem(t, rec)["code"])
	assert.Empty(t, f.do(get(PathUpdateJSON)).Body.String())
}

func TestUpdate_AppliesPolicyOnSuccess(t *testing.T) {
	f := newFixture(t, nil)

	for i := 1; i <= 2; i++ {
		rec := f.do(postRequest(PathUpdate, `{"posts":[]}`))
		require.Equal(t, http.StatusOK, rec.Code)

		for _, s := range []*sink.MemorySink{f.text, f.json} {
			p, count, ok := s.Policy()
			require.True(t, ok)
			assert.Equal(t, i, count)
			assert.Equal(t, sink.DefaultMode, p.EffectiveMode())
		}
	}
}

func TestUpdate_RateLimited(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.RateLimitRPM = 1 })

	require.Equal(t, http.StatusOK, f.do(postRequest(PathUpdate, `{"posts":[]}`)).Code)
	rec := f.do(postRequest(PathUpdate, `{"posts":[]}`))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// read-back is not limited
	assert.Equal(t, http.StatusOK, f.do(get(PathUpdateJSON)).Code)
}

func TestDump(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(get(PathDump))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, problem.CodeNotFound, decodeProblem(t, rec)["code"])

	rec = f.do(formRequest(PathDump, url.Values{"other": {"x"}}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := os.Stat(f.dumper.Path())
	assert.True(t, os.IsNotExist(err), "no-op must not create the artifact")

	for _, body := range []string{"first raw body, not json", "second"} {
		rec = f.do(postRequest(PathDump, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp DumpResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, len(body), resp.Bytes)

		read := f.do(get(PathDump))
		require.Equal(t, http.StatusOK, read.Code)
		assert.Equal(t, "application/octet-stream", read.Header().Get("Content-Type"))
		assert.Equal(t, body, read.Body.String(), "artifact is replaced, not appended")
	}

	info, err := os.Stat(f.dumper.Path())
	require.NoError(t, err)
	assert.Equal(t, sink.DefaultMode, info.Mode().Perm())

	assert.Empty(t, f.do(get(PathUpdateText)).Body.String(), "dump never touches the update logs")
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.ServeMetrics = true })

	assert.Equal(t, http.StatusOK, f.do(get(PathHealth)).Code)
	assert.Equal(t, http.StatusOK, f.do(get(PathReady)).Code)

	require.Equal(t, http.StatusOK, f.do(postRequest(PathUpdate, `{"posts":[{"type":"PROGRESS_UPDATED","message":"50"}]}`)).Code)
	metrics := f.do(get(PathMetrics))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "updatesink_http_request_duration_seconds")
	assert.Contains(t, metrics.Body.String(), "updatesink_batches_total")
}

func TestMetricsRouteDisabled(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(get(PathMetrics)).Code)
}

func TestRouting_Problems(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(get("/nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, problem.CodeNotFound, decodeProblem(t, rec)["code"])

	rec = f.do(httptest.NewRequest(http.MethodDelete, PathUpdate, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}
