// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"bytes"
	"encoding/json"
	"strings"
)

var jsonNull = []byte("null")

// jsonWhitespace is the insignificant whitespace of the JSON grammar (RFC 8259).
const jsonWhitespace = " \t\r\n"

// ParseBatch decodes a payload of the form {"posts":[{"type":"...","message":"..."}, ...]}.
// Only surrounding JSON whitespace (space, tab, CR, LF) of the whole payload is
// removed; field values are kept as sent.
func ParseBatch(payload string) (Batch, error) {
	raw := strings.Trim(payload, jsonWhitespace)
	data := []byte(raw)

	if !json.Valid(data) {
		return Batch{}, envelopeError("", "payload is not valid JSON", nil)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || envelope == nil {
		return Batch{}, envelopeError("", "payload is not a JSON object", err)
	}

	postsRaw, ok := envelope["posts"]
	if !ok {
		return Batch{}, envelopeError("posts", "missing", nil)
	}
	if bytes.Equal(bytes.TrimSpace(postsRaw), jsonNull) {
		return Batch{}, envelopeError("posts", "must be an array", nil)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(postsRaw, &elems); err != nil {
		return Batch{}, envelopeError("posts", "must be an array", err)
	}

	batch := Batch{
		ItemID:    optionalString(envelope, "item_id"),
		ClientKey: optionalString(envelope, "client_key"),
		Events:    make([]UpdateEvent, 0, len(elems)),
		Raw:       raw,
	}

	for i, elem := range elems {
		ev, err := decodeEvent(i, elem)
		if err != nil {
			return Batch{}, err
		}
		batch.Events = append(batch.Events, ev)
	}

	return batch, nil
}

func decodeEvent(index int, elem json.RawMessage) (UpdateEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return UpdateEvent{}, &ParseError{Index: index, Reason: "event must be a JSON object", Err: err}
	}

	typ, err := requiredString(index, fields, "type")
	if err != nil {
		return UpdateEvent{}, err
	}
	msg, err := requiredString(index, fields, "message")
	if err != nil {
		return UpdateEvent{}, err
	}
	return UpdateEvent{Type: typ, Message: msg}, nil
}

func requiredString(index int, fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &ParseError{Index: index, Field: name, Reason: "missing"}
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", &ParseError{Index: index, Field: name, Reason: "must be a string"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ParseError{Index: index, Field: name, Reason: "must be a string", Err: err}
	}
	return s, nil
}

// optionalString returns the string value of key, or "" when absent or not a string.
func optionalString(envelope map[string]json.RawMessage, key string) string {
	raw, ok := envelope[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
