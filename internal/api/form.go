// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"mime"
	"net/http"
)

// PostField is the form field carrying the payload.
const PostField = "post"

// errBodyTooLarge is returned when the request body exceeds MaxBodyBytes.
var errBodyTooLarge = errors.New("request body too large")

// extractPost reads the post field from a urlencoded or multipart body.
// ok is false when the field is absent or the body is not a form; that is a
// no-op, not an error. Only an oversized body is reported.
func extractPost(w http.ResponseWriter, r *http.Request, maxBytes int64) (value string, ok bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxBytes)
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", false, errBodyTooLarge
		}
		return "", false, nil
	}

	values, present := r.PostForm[PostField]
	if !present || len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}
