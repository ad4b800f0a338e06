package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/octobees/prospector/internal/entity"
)

// SQLiteEnrichmentStore implements EnrichmentStore on an embedded SQLite file,
// for the CLI and single-node deployments.
type SQLiteEnrichmentStore struct {
	db *sql.DB
}

const sqliteEnrichmentSchema = `
CREATE TABLE IF NOT EXISTS openstreetmap_enrichi (
	website      TEXT PRIMARY KEY,
	emails       TEXT NOT NULL DEFAULT '[]',
	telephones   TEXT NOT NULL DEFAULT '[]',
	whatsapp     TEXT NOT NULL DEFAULT '[]',
	scraped_urls TEXT NOT NULL DEFAULT '[]',
	is_empty     INTEGER NOT NULL DEFAULT 0,
	updated_at   TEXT NOT NULL
);
`

// NewSQLiteEnrichmentStore opens path, switches it to WAL mode and creates
// the cache table.
func NewSQLiteEnrichmentStore(ctx context.Context, path string) (*SQLiteEnrichmentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		sqliteEnrichmentSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", strings.TrimSpace(strings.SplitN(stmt, "\n", 2)[0]))
		}
	}
	return &SQLiteEnrichmentStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteEnrichmentStore) Close() error {
	return s.db.Close()
}

// SetEnrichment inserts or replaces the cached contacts of a website.
func (s *SQLiteEnrichmentStore) SetEnrichment(ctx context.Context, entry *entity.EnrichmentCacheEntry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO openstreetmap_enrichi (website, emails, telephones, whatsapp, scraped_urls, is_empty, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (website) DO UPDATE SET
			emails = excluded.emails,
			telephones = excluded.telephones,
			whatsapp = excluded.whatsapp,
			scraped_urls = excluded.scraped_urls,
			is_empty = excluded.is_empty,
			updated_at = excluded.updated_at`,
		row.website, row.emails, row.phones, row.whatsApp, row.scrapedURLs, row.isEmpty,
		row.updatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert enrichment for %s", row.website)
	}
	return nil
}

// GetEnrichment returns the cached contacts of a website, stale or not.
func (s *SQLiteEnrichmentStore) GetEnrichment(ctx context.Context, website string) (*entity.EnrichmentCacheEntry, error) {
	website = strings.TrimSpace(website)
	entry := entity.EnrichmentCacheEntry{Website: website}
	var emails, phones, whatsApp, scraped, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT emails, telephones, whatsapp, scraped_urls, is_empty, updated_at
		FROM openstreetmap_enrichi
		WHERE website = ?`, website,
	).Scan(&emails, &phones, &whatsApp, &scraped, &entry.IsEmpty, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrichmentNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: fetch enrichment for %s", website)
	}

	entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse updated_at for %s", website)
	}
	if err := decodeLists(&entry, []byte(emails), []byte(phones), []byte(whatsApp), []byte(scraped)); err != nil {
		return nil, err
	}
	return &entry, nil
}
