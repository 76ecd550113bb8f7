package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"predictd/internal/inference"
	"predictd/internal/pipeline"
	"predictd/internal/registry"
	"predictd/internal/staging"
	"predictd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string   { return e.msg }
func (e *httpError) StatusCode() int { return e.code }

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case pipeline.IsBadRequest(err):
		return http.StatusBadRequest
	case registry.IsModelNotFound(err), errors.Is(err, pipeline.ErrHistoryDisabled):
		return http.StatusNotFound
	case inference.IsTooBusy(err):
		return http.StatusTooManyRequests
	case errors.Is(err, staging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case inference.IsInference(err):
		return http.StatusUnprocessableEntity
	case staging.IsNoSpace(err):
		return http.StatusInsufficientStorage
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.PredictResponse{Status: types.StatusError, Error: msg})
}
