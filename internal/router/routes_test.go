package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/config"
	"github.com/octobees/prospector/internal/dto"
	"github.com/octobees/prospector/internal/handler"
)

type okSearcher struct{}

func (okSearcher) Search(context.Context, dto.SearchRequest) (*dto.SearchResponse, error) {
	return &dto.SearchResponse{Results: []any{}}, nil
}

func newTestServer(t *testing.T, rateLimit string) *echo.Echo {
	t.Helper()
	e := echo.New()
	cfg := &config.Config{Server: config.ServerConfig{RateLimitSearch: rateLimit}}
	require.NoError(t, Register(e, cfg, Handlers{Prospects: handler.NewProspectsHandler(okSearcher{})}))
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRegister_Routes(t *testing.T) {
	e := newTestServer(t, "30/min")

	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(e, "/categories").Code)
	assert.Equal(t, http.StatusOK, get(e, "/prospects?where=Lyon").Code)

	metrics := get(e, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.True(t, strings.Contains(metrics.Body.String(), "go_goroutines"))
}

func TestRegister_SearchRateLimited(t *testing.T) {
	e := newTestServer(t, "1/min")

	assert.Equal(t, http.StatusOK, get(e, "/prospects?where=Lyon").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "/prospects?where=Lyon").Code)
	assert.Equal(t, http.StatusOK, get(e, "/categories").Code)
}

func TestRegister_InvalidRateLimit(t *testing.T) {
	e := echo.New()
	cfg := &config.Config{Server: config.ServerConfig{RateLimitSearch: "lots"}}
	assert.Error(t, Register(e, cfg, Handlers{Prospects: handler.NewProspectsHandler(okSearcher{})}))
}
