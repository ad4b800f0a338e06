package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
)

func newTestSQLiteStore(t *testing.T) *SQLiteEnrichmentStore {
	t.Helper()
	store, err := NewSQLiteEnrichmentStore(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteEnrichmentStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	require.NoError(t, store.SetEnrichment(ctx, &entity.EnrichmentCacheEntry{
		Website:     "https://chezlulu.fr",
		Emails:      []string{"hello@chezlulu.fr"},
		Phones:      []string{"+33612345678"},
		ScrapedURLs: []string{"https://chezlulu.fr"},
		UpdatedAt:   updated,
	}))

	entry, err := store.GetEnrichment(ctx, "https://chezlulu.fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello@chezlulu.fr"}, entry.Emails)
	assert.Equal(t, []string{"+33612345678"}, entry.Phones)
	assert.Equal(t, []string{}, entry.WhatsApp)
	assert.False(t, entry.IsEmpty)
	assert.True(t, entry.UpdatedAt.Equal(updated))
}

func TestSQLiteEnrichmentStore_Upsert(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetEnrichment(ctx, &entity.EnrichmentCacheEntry{
		Website:   "https://chezlulu.fr",
		Emails:    []string{"old@chezlulu.fr"},
		UpdatedAt: first,
	}))
	require.NoError(t, store.SetEnrichment(ctx, &entity.EnrichmentCacheEntry{
		Website:   "https://chezlulu.fr",
		UpdatedAt: first.Add(time.Hour),
	}))

	entry, err := store.GetEnrichment(ctx, "https://chezlulu.fr")
	require.NoError(t, err)
	assert.Empty(t, entry.Emails)
	assert.True(t, entry.IsEmpty)
	assert.True(t, entry.UpdatedAt.Equal(first.Add(time.Hour)))
}

func TestSQLiteEnrichmentStore_NotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	_, err := store.GetEnrichment(context.Background(), "https://missing.example")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
