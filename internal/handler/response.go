package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/apperr"
	middleware "github.com/octobees/prospector/internal/middleware"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes data in a success envelope. A zero status means 200.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{Status: "success", Message: message, Data: data})
}

// Error writes an error envelope. A zero status means 500.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, APIResponse{Status: "error", Message: message})
}

// Fail maps a pipeline error to its HTTP status and writes the error
// envelope. Internal errors are logged with the request id and answered
// with a generic message; a cancelled request is reported as unavailable.
func Fail(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		status = http.StatusServiceUnavailable
		message = "request cancelled"
	}

	fields := []zap.Field{
		zap.String("request_id", middleware.RequestIDFromContext(c)),
		zap.String("kind", apperr.Kind(err)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", fields...)
		message = http.StatusText(status)
	} else {
		zap.L().Warn("request failed", fields...)
	}
	return Error(c, status, message)
}
