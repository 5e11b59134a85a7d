// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch_PreservesOrder(t *testing.T) {
	payload := `{"posts":[{"type":"STEP","message":"one"},{"type":"STEP","message":"two"},{"type":"ERROR","message":"three"}]}`

	b, err := ParseBatch(payload)
	require.NoError(t, err)
	require.Equal(t, 3, b.Len())
	assert.Equal(t, []UpdateEvent{
		{Type: "STEP", Message: "one"},
		{Type: "STEP", Message: "two"},
		{Type: "ERROR", Message: "three"},
	}, b.Events)
	assert.Equal(t, payload, b.Raw)
}

func TestParseBatch_TrimsOnlyOuterWhitespace(t *testing.T) {
	inner := `{"posts":[{"type":" STEP ","message":"  padded  "}]}`

	b, err := ParseBatch("\n\t " + inner + " \r\n")
	require.NoError(t, err)
	assert.Equal(t, inner, b.Raw)
	assert.Equal(t, " STEP ", b.Events[0].Type)
	assert.Equal(t, "  padded  ", b.Events[0].Message)
}

func TestParseBatch_NonJSONWhitespaceIsNotTrimmed(t *testing.T) {
	for _, tc := range []struct{ name, payload string }{
		{"trailing NEL", " {\"posts\":[]}\u0085"},
		{"leading NBSP", "\u00a0{\"posts\":[]}"},
		{"vertical tab", "\v{\"posts\":[]}"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBatch(tc.payload)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, -1, pe.Index)
		})
	}
}

func TestParseBatch_EnvelopeFields(t *testing.T) {
	payload := `{"item_id":"7", "client_key":"k-1", "posts":[{"type":"UPDATER_STARTED","message":""}]}`

	b, err := ParseBatch(payload)
	require.NoError(t, err)
	assert.Equal(t, "7", b.ItemID)
	assert.Equal(t, "k-1", b.ClientKey)
	assert.True(t, b.HasStart())
}

func TestParseBatch_EmptyPosts(t *testing.T) {
	b, err := ParseBatch(`{"posts":[]}`)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.TextRecords())
	assert.False(t, b.HasStart())
}

func TestParseBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		index   int
		field   string
	}{
		{name: "not json", payload: "type=STEP", index: -1},
		{name: "empty", payload: "   ", index: -1},
		{name: "only newlines", payload: "\r\n\n", index: -1},
		{name: "trailing garbage", payload: `{"posts":[]} x`, index: -1},
		{name: "array top level", payload: `[{"type":"a","message":"b"}]`, index: -1},
		{name: "string top level", payload: `"posts"`, index: -1},
		{name: "missing posts", payload: `{"items":[]}`, index: -1, field: "posts"},
		{name: "null posts", payload: `{"posts":null}`, index: -1, field: "posts"},
		{name: "object posts", payload: `{"posts":{"type":"a"}}`, index: -1, field: "posts"},
		{name: "element not object", payload: `{"posts":["STEP=x"]}`, index: 0},
		{name: "null element", payload: `{"posts":[null]}`, index: 0},
		{name: "missing type", payload: `{"posts":[{"type":"A","message":"ok"},{"message":"x"}]}`, index: 1, field: "type"},
		{name: "missing message", payload: `{"posts":[{"type":"A"}]}`, index: 0, field: "message"},
		{name: "numeric type", payload: `{"posts":[{"type":1,"message":"x"}]}`, index: 0, field: "type"},
		{name: "null message", payload: `{"posts":[{"type":"A","message":null}]}`, index: 0, field: "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatch(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.index, pe.Index)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestUpdateEvent_IsStart(t *testing.T) {
	assert.True(t, UpdateEvent{Type: "UPDATER_STARTED"}.IsStart())
	assert.True(t, UpdateEvent{Type: "  UPDATER_STARTED\n"}.IsStart())
	assert.False(t, UpdateEvent{Type: "updater_started"}.IsStart())
	assert.False(t, UpdateEvent{Type: "UPDATER_STOPPED"}.IsStart())
}

func TestBatch_TextRecords(t *testing.T) {
	b := Batch{Events: []UpdateEvent{
		{Type: "UPDATER_STARTED", Message: "init"},
		{Type: "STEP", Message: "loaded config"},
	}}
	assert.Equal(t, "UPDATER_STARTED=init\nSTEP=loaded config\n", string(b.TextRecords()))
}

func TestUpdateEvent_Label(t *testing.T) {
	assert.Equal(t, TypeProgressUpdated, UpdateEvent{Type: "PROGRESS_UPDATED"}.Label())
	assert.Equal(t, "other", UpdateEvent{Type: "STEP"}.Label())
}
