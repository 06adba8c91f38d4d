package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"expensebook/internal/core"
)

// maxBodyBytes bounds upsert bodies.
const maxBodyBytes = 64 << 10

// decodeBody reads a single JSON object into v. The returned status is the
// one to answer with when err is not nil; rejected field values are 422.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", ct)
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidAmount):
			return http.StatusUnprocessableEntity, err
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, errors.New("request body is empty")
		default:
			return http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
		}
	}
	if dec.More() {
		return http.StatusBadRequest, errors.New("request body must contain a single JSON object")
	}
	return 0, nil
}
