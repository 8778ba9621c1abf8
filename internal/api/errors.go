// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/recorder"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, dvr.ErrRecordingNotFound),
		errors.Is(err, dvr.ErrPresetNotFound),
		errors.Is(err, events.ErrEventNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, dvr.ErrBuiltinPreset),
		errors.Is(err, dvr.ErrInvalidTransition),
		errors.Is(err, recorder.ErrBusy):
		return http.StatusConflict, "conflict"
	case errors.Is(err, dvr.ErrInvalidRecording),
		errors.Is(err, dvr.ErrInvalidPreset),
		errors.Is(err, events.ErrInvalidEvent),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError writes an error response whose status follows the error kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Detail:    err.Error(),
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// decodeJSON reads a strict JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
