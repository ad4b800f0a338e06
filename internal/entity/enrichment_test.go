package entity

import (
	"testing"
	"time"
)

func TestEnrichmentCacheEntryFresh(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	full := 30 * 24 * time.Hour
	empty := 10 * 24 * time.Hour

	withContacts := &EnrichmentCacheEntry{Emails: []string{"a@b.fr"}, UpdatedAt: now.Add(-20 * 24 * time.Hour)}
	if !withContacts.Fresh(now, full, empty) {
		t.Fatalf("expected entry with contacts to be fresh after 20 days")
	}

	withoutContacts := &EnrichmentCacheEntry{IsEmpty: true, UpdatedAt: now.Add(-11 * 24 * time.Hour)}
	if withoutContacts.Fresh(now, full, empty) {
		t.Fatalf("expected empty entry to expire after 10 days")
	}

	stale := &EnrichmentCacheEntry{Phones: []string{"+33123456789"}, UpdatedAt: now.Add(-31 * 24 * time.Hour)}
	if stale.Fresh(now, full, empty) {
		t.Fatalf("expected entry to expire after 30 days")
	}

	var missing *EnrichmentCacheEntry
	if missing.Fresh(now, full, empty) {
		t.Fatalf("nil entry must never be fresh")
	}
}
