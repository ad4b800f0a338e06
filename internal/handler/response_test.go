package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/apperr"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/prospects", nil), rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var payload APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestSuccessDefaultsToOK(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Success(c, 0, "categories retrieved", []string{"bakery"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeEnvelope(t, rec)
	assert.Equal(t, "success", payload.Status)
	assert.Equal(t, "categories retrieved", payload.Message)
	assert.Equal(t, []any{"bakery"}, payload.Data)
}

func TestErrorDefaultsToInternal(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Error(c, 0, "boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	payload := decodeEnvelope(t, rec)
	assert.Equal(t, "error", payload.Status)
	assert.Equal(t, "boom", payload.Message)
	assert.Nil(t, payload.Data)
}

func TestFail(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "invalid input keeps its message",
			err:     eris.Wrap(apperr.ErrInvalidInput, "radius_min_km must be lower than radius_km"),
			status:  http.StatusBadRequest,
			message: "radius_min_km must be lower than radius_km",
		},
		{
			name:    "unknown place",
			err:     eris.Wrap(apperr.ErrNotFound, "geocode: no match for \"Atlantis\""),
			status:  http.StatusNotFound,
			message: "no match",
		},
		{
			name:    "overpass down",
			err:     eris.Wrap(apperr.ErrUpstreamUnavailable, "overpass: budget exhausted"),
			status:  http.StatusServiceUnavailable,
			message: "budget exhausted",
		},
		{
			name:    "cancelled request",
			err:     fmt.Errorf("overpass: fetch: %w", context.Canceled),
			status:  http.StatusServiceUnavailable,
			message: "request cancelled",
		},
		{
			name:    "internal error is hidden",
			err:     eris.New("nil pointer in refine"),
			status:  http.StatusInternalServerError,
			message: "Internal Server Error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext()
			require.NoError(t, Fail(c, tc.err))

			assert.Equal(t, tc.status, rec.Code)
			payload := decodeEnvelope(t, rec)
			assert.Equal(t, "error", payload.Status)
			assert.Contains(t, payload.Message, tc.message)
			assert.NotContains(t, payload.Message, "nil pointer")
		})
	}
}
