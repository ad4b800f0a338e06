package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/prospector/internal/config"
	"github.com/octobees/prospector/internal/handler"
	middlewarepkg "github.com/octobees/prospector/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Prospects *handler.ProspectsHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) error {
	limit, err := cfg.Server.SearchRateLimit()
	if err != nil {
		return err
	}

	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/prospects", handlers.Prospects.Search, middlewarepkg.SearchRateLimiter(limit, "/prospects"))
	e.GET("/categories", handlers.Prospects.Categories)
	return nil
}
