package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
)

func TestPGXEnrichmentStore_SetEnrichment(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pool.ExpectExec("INSERT INTO openstreetmap_enrichi").
		WithArgs(
			"https://chezlulu.fr",
			`["hello@chezlulu.fr"]`,
			`["+33612345678"]`,
			`[]`,
			`["https://chezlulu.fr","https://chezlulu.fr/contact"]`,
			false,
			updated,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPGXEnrichmentStore(pool)
	err = store.SetEnrichment(context.Background(), &entity.EnrichmentCacheEntry{
		Website:     " https://chezlulu.fr ",
		Emails:      []string{"hello@chezlulu.fr"},
		Phones:      []string{"+33612345678"},
		ScrapedURLs: []string{"https://chezlulu.fr", "https://chezlulu.fr/contact"},
		UpdatedAt:   updated,
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGXEnrichmentStore_SetEnrichmentMarksEmpty(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectExec("INSERT INTO openstreetmap_enrichi").
		WithArgs("https://empty.example", "[]", "[]", "[]", "[]", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPGXEnrichmentStore(pool)
	require.NoError(t, store.SetEnrichment(context.Background(), &entity.EnrichmentCacheEntry{Website: "https://empty.example"}))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGXEnrichmentStore_SetEnrichmentRejectsMissingWebsite(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	store := NewPGXEnrichmentStore(pool)
	err = store.SetEnrichment(context.Background(), &entity.EnrichmentCacheEntry{Website: "  "})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	err = store.SetEnrichment(context.Background(), nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestPGXEnrichmentStore_GetEnrichment(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"emails", "telephones", "whatsapp", "scraped_urls", "is_empty", "updated_at"}).
		AddRow(
			[]byte(`["hello@chezlulu.fr"]`),
			[]byte(`["+33612345678"]`),
			[]byte(`null`),
			[]byte(`["https://chezlulu.fr"]`),
			false,
			updated,
		)
	pool.ExpectQuery("FROM openstreetmap_enrichi").
		WithArgs("https://chezlulu.fr").
		WillReturnRows(rows)

	store := NewPGXEnrichmentStore(pool)
	entry, err := store.GetEnrichment(context.Background(), "https://chezlulu.fr")
	require.NoError(t, err)
	assert.Equal(t, "https://chezlulu.fr", entry.Website)
	assert.Equal(t, []string{"hello@chezlulu.fr"}, entry.Emails)
	assert.Equal(t, []string{"+33612345678"}, entry.Phones)
	assert.Equal(t, []string{}, entry.WhatsApp)
	assert.Equal(t, []string{"https://chezlulu.fr"}, entry.ScrapedURLs)
	assert.False(t, entry.IsEmpty)
	assert.True(t, entry.UpdatedAt.Equal(updated))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGXEnrichmentStore_GetEnrichmentNotFound(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("FROM openstreetmap_enrichi").
		WithArgs("https://missing.example").
		WillReturnError(pgx.ErrNoRows)

	store := NewPGXEnrichmentStore(pool)
	_, err = store.GetEnrichment(context.Background(), "https://missing.example")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnrichmentNotFound))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPGXEnrichmentStore_GetEnrichmentFailure(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	boom := errors.New("connection reset")
	pool.ExpectQuery("FROM openstreetmap_enrichi").WillReturnError(boom)

	store := NewPGXEnrichmentStore(pool)
	_, err = store.GetEnrichment(context.Background(), "https://chezlulu.fr")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}
