package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy to ensure headers are only sent after successful encoding.
// This allows returning a proper 500 error if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a JSON error response with an explicit status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// errorStatus maps the domain error taxonomy onto HTTP statuses:
// bad input 400, missing resource 404, vector space conflict 409,
// deployment gaps (unknown provider, backend, model) 422, upstream
// provider failure 502, everything else 500.
func errorStatus(err error) (int, string) {
	switch {
	case errdefs.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errdefs.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errdefs.IsDimensionMismatch(err):
		return http.StatusConflict, "dimension_mismatch"
	case errdefs.IsConfiguration(err):
		return http.StatusUnprocessableEntity, "configuration_error"
	case errdefs.IsProvider(err):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError converts a domain error into its wire form. Internal
// errors keep their details in the log, not the response.
func respondError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method,
		)
		writeError(w, status, code, "internal server error")
		return
	}
	logger.Debug("request rejected",
		"error", err,
		"status", status,
		"path", r.URL.Path,
	)
	writeError(w, status, code, err.Error())
}

// decodeJSON reads a JSON request body into dst, capping the body at
// 1 MB. On failure the error response has already been written and the
// handler should return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}
