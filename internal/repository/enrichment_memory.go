package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/octobees/prospector/internal/entity"
)

// MemoryEnrichmentStore keeps entries in process memory. It is the default
// when no durable store is configured.
type MemoryEnrichmentStore struct {
	mu      sync.RWMutex
	entries map[string]entity.EnrichmentCacheEntry
}

func NewMemoryEnrichmentStore() *MemoryEnrichmentStore {
	return &MemoryEnrichmentStore{entries: map[string]entity.EnrichmentCacheEntry{}}
}

func (s *MemoryEnrichmentStore) GetEnrichment(_ context.Context, website string) (*entity.EnrichmentCacheEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[strings.TrimSpace(website)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrEnrichmentNotFound
	}
	entry.Emails = append([]string{}, entry.Emails...)
	entry.Phones = append([]string{}, entry.Phones...)
	entry.WhatsApp = append([]string{}, entry.WhatsApp...)
	entry.ScrapedURLs = append([]string{}, entry.ScrapedURLs...)
	return &entry, nil
}

func (s *MemoryEnrichmentStore) SetEnrichment(_ context.Context, entry *entity.EnrichmentCacheEntry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	stored := *entry
	stored.Website = row.website
	stored.IsEmpty = row.isEmpty
	stored.UpdatedAt = row.updatedAt

	s.mu.Lock()
	s.entries[row.website] = stored
	s.mu.Unlock()
	return nil
}
