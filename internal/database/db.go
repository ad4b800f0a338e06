// Package database opens the PostgreSQL pool backing the enrichment cache.
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Connect opens a PostgreSQL connection pool using pgx and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("database DSN must not be empty")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "parse pgx config")
	}

	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "create pgx pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}

	return pool, nil
}

// Execer is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the website enrichment cache. One row per normalized
// website; list columns hold JSON arrays.
const Schema = `
CREATE TABLE IF NOT EXISTS openstreetmap_enrichi (
	website      TEXT PRIMARY KEY,
	emails       JSONB NOT NULL DEFAULT '[]'::jsonb,
	telephones   JSONB NOT NULL DEFAULT '[]'::jsonb,
	whatsapp     JSONB NOT NULL DEFAULT '[]'::jsonb,
	scraped_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_empty     BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_openstreetmap_enrichi_updated_at ON openstreetmap_enrichi(updated_at);
`

// EnsureSchema applies Schema. It is idempotent.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return eris.Wrap(err, "ensure enrichment schema")
	}
	return nil
}
