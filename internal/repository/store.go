package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/database"
)

// Store drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// StoreOptions selects and configures the enrichment cache backend.
type StoreOptions struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	RedisAddr   string
	FullTTL     time.Duration
	EmptyTTL    time.Duration
}

// Open builds the enrichment store named by opts.Driver. The returned close
// function releases the backend and is never nil.
func Open(ctx context.Context, opts StoreOptions) (EnrichmentStore, func(), error) {
	noop := func() {}
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemoryEnrichmentStore(), noop, nil

	case DriverPostgres:
		pool, err := database.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return NewPGXEnrichmentStore(pool), pool.Close, nil

	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = "prospector.db"
		}
		store, err := NewSQLiteEnrichmentStore(ctx, path)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				zap.L().Warn("closing sqlite store", zap.Error(err))
			}
		}, nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close() //nolint:errcheck
			return nil, noop, eris.Wrapf(err, "redis: ping %s", opts.RedisAddr)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				zap.L().Warn("closing redis client", zap.Error(err))
			}
		}
		return NewRedisEnrichmentStore(client, opts.FullTTL, opts.EmptyTTL), closeFn, nil

	default:
		return nil, noop, eris.Wrapf(apperr.ErrInvalidInput, "unknown store driver %q", opts.Driver)
	}
}
