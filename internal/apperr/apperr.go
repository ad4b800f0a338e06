// Package apperr holds the error kinds surfaced by the prospect pipeline.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidInput means the caller supplied unusable search parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a place name could not be resolved.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable means an external provider could not serve the request.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// HTTPStatus maps an error to the status code returned by the API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short label for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "internal"
	}
}
