package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/app"
	"github.com/octobees/prospector/internal/config"
	"github.com/octobees/prospector/internal/handler"
	middlewarepkg "github.com/octobees/prospector/internal/middleware"
	"github.com/octobees/prospector/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		zap.L().Fatal("failed to build pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())

	if err := router.Register(e, cfg, router.Handlers{
		Prospects: handler.NewProspectsHandler(pipeline.Prospects),
	}); err != nil {
		zap.L().Fatal("failed to register routes", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		serverErr <- e.Start(":" + cfg.Server.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("graceful shutdown failed", zap.Error(err))
	}
}
