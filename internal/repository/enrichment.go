package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
)

// ErrEnrichmentNotFound indicates there is no cached enrichment for the website.
var ErrEnrichmentNotFound = eris.Wrap(apperr.ErrNotFound, "enrichment not found")

// EnrichmentStore caches website crawl results.
type EnrichmentStore interface {
	GetEnrichment(ctx context.Context, website string) (*entity.EnrichmentCacheEntry, error)
	SetEnrichment(ctx context.Context, entry *entity.EnrichmentCacheEntry) error
}

// Querier is the subset of *pgxpool.Pool used by PGXEnrichmentStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGXEnrichmentStore implements EnrichmentStore on PostgreSQL.
type PGXEnrichmentStore struct {
	db Querier
}

// NewPGXEnrichmentStore wires a pgx backed store.
func NewPGXEnrichmentStore(db Querier) *PGXEnrichmentStore {
	return &PGXEnrichmentStore{db: db}
}

const upsertEnrichmentSQL = `
	INSERT INTO openstreetmap_enrichi (
		website,
		emails,
		telephones,
		whatsapp,
		scraped_urls,
		is_empty,
		updated_at
	) VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb, $6, $7)
	ON CONFLICT (website) DO UPDATE SET
		emails = EXCLUDED.emails,
		telephones = EXCLUDED.telephones,
		whatsapp = EXCLUDED.whatsapp,
		scraped_urls = EXCLUDED.scraped_urls,
		is_empty = EXCLUDED.is_empty,
		updated_at = EXCLUDED.updated_at;
`

const selectEnrichmentSQL = `
	SELECT
		emails,
		telephones,
		whatsapp,
		scraped_urls,
		is_empty,
		updated_at
	FROM openstreetmap_enrichi
	WHERE website = $1
	LIMIT 1
`

// SetEnrichment inserts or replaces the cached contacts of a website.
func (s *PGXEnrichmentStore) SetEnrichment(ctx context.Context, entry *entity.EnrichmentCacheEntry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, upsertEnrichmentSQL,
		row.website,
		row.emails,
		row.phones,
		row.whatsApp,
		row.scrapedURLs,
		row.isEmpty,
		row.updatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "upsert enrichment for %s", row.website)
	}
	return nil
}

// GetEnrichment returns the cached contacts of a website, stale or not.
func (s *PGXEnrichmentStore) GetEnrichment(ctx context.Context, website string) (*entity.EnrichmentCacheEntry, error) {
	website = strings.TrimSpace(website)
	entry := entity.EnrichmentCacheEntry{Website: website}
	var emails, phones, whatsApp, scraped []byte
	err := s.db.QueryRow(ctx, selectEnrichmentSQL, website).Scan(
		&emails,
		&phones,
		&whatsApp,
		&scraped,
		&entry.IsEmpty,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrichmentNotFound
		}
		return nil, eris.Wrapf(err, "fetch enrichment for %s", website)
	}
	if err := decodeLists(&entry, emails, phones, whatsApp, scraped); err != nil {
		return nil, err
	}
	return &entry, nil
}

type encodedEntry struct {
	website     string
	emails      string
	phones      string
	whatsApp    string
	scrapedURLs string
	isEmpty     bool
	updatedAt   time.Time
}

func encodeEntry(entry *entity.EnrichmentCacheEntry) (encodedEntry, error) {
	if entry == nil {
		return encodedEntry{}, eris.Wrap(apperr.ErrInvalidInput, "enrichment payload is nil")
	}
	website := strings.TrimSpace(entry.Website)
	if website == "" {
		return encodedEntry{}, eris.Wrap(apperr.ErrInvalidInput, "enrichment website is empty")
	}

	out := encodedEntry{website: website, isEmpty: entry.IsEmpty || !entry.HasContacts(), updatedAt: entry.UpdatedAt.UTC()}
	if entry.UpdatedAt.IsZero() {
		out.updatedAt = time.Now().UTC()
	}
	for _, f := range []struct {
		dst *string
		src []string
	}{
		{&out.emails, entry.Emails},
		{&out.phones, entry.Phones},
		{&out.whatsApp, entry.WhatsApp},
		{&out.scrapedURLs, entry.ScrapedURLs},
	} {
		raw, err := json.Marshal(stringSliceOrEmpty(f.src))
		if err != nil {
			return encodedEntry{}, eris.Wrap(err, "marshal enrichment list")
		}
		*f.dst = string(raw)
	}
	return out, nil
}

func decodeLists(entry *entity.EnrichmentCacheEntry, emails, phones, whatsApp, scraped []byte) error {
	for _, f := range []struct {
		dst *[]string
		src []byte
	}{
		{&entry.Emails, emails},
		{&entry.Phones, phones},
		{&entry.WhatsApp, whatsApp},
		{&entry.ScrapedURLs, scraped},
	} {
		*f.dst = []string{}
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return eris.Wrap(err, "unmarshal enrichment list")
		}
		if *f.dst == nil {
			*f.dst = []string{}
		}
	}
	return nil
}

func stringSliceOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
