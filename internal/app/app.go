// Package app assembles the prospect pipeline from configuration.
package app

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/config"
	"github.com/octobees/prospector/internal/enrich"
	"github.com/octobees/prospector/internal/geocode"
	"github.com/octobees/prospector/internal/overpass"
	"github.com/octobees/prospector/internal/repository"
	"github.com/octobees/prospector/internal/service"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Prospects *service.ProspectsService
	closeFn   func()
}

// Close releases the enrichment store.
func (a *App) Close() {
	if a != nil && a.closeFn != nil {
		a.closeFn()
	}
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, eris.New("app: nil config")
	}

	store, closeStore, err := repository.Open(ctx, repository.StoreOptions{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		RedisAddr:   cfg.Store.RedisAddr,
		FullTTL:     cfg.Enrich.FullTTL,
		EmptyTTL:    cfg.Enrich.EmptyTTL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "app: open enrichment store")
	}

	resolver := geocode.NewResolver(geocode.Config{
		BaseURL:    cfg.Geocode.BaseURL,
		UserAgent:  cfg.Geocode.UserAgent,
		Email:      cfg.Geocode.Email,
		Timeout:    cfg.Geocode.Timeout,
		Interval:   cfg.Geocode.Interval,
		MaxRetries: cfg.Geocode.MaxRetries,
	}, geocode.WithCache(geocode.NewCache(cfg.Geocode.CacheTTL, cfg.Geocode.CacheMaxItems)))

	fetcher := overpass.NewFetcher(overpass.Config{
		Endpoints:           cfg.Overpass.Endpoints,
		Budget:              cfg.Overpass.Budget,
		RequestTimeout:      cfg.Overpass.RequestTimeout,
		AttemptsPerEndpoint: cfg.Overpass.AttemptsPerEndpoint,
		UserAgent:           cfg.Geocode.UserAgent,
	})

	pages := enrich.NewHTTPPageFetcher(nil, cfg.Enrich.Timeout, cfg.Enrich.UserAgent)
	crawler := enrich.NewCrawler(pages, nil, cfg.Enrich.MaxPages, cfg.Enrich.Delay)
	enricher := enrich.NewEnricher(crawler, store, enrich.Config{
		FullTTL:  cfg.Enrich.FullTTL,
		EmptyTTL: cfg.Enrich.EmptyTTL,
	})

	prospects := service.NewProspectsService(resolver, fetcher, enricher, service.ProspectsConfig{
		MaxRadiusKm:     cfg.Overpass.MaxRadiusKm,
		DefaultRadiusKm: cfg.Overpass.DefaultRadiusKm,
		QueryTimeoutSec: cfg.Overpass.QueryTimeoutSec,
		StrictTags:      cfg.Overpass.StrictTags,
	})

	return &App{Prospects: prospects, closeFn: closeStore}, nil
}
