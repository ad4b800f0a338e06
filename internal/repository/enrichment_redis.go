package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/entity"
)

const enrichmentKeyPrefix = "enrich:"

// RedisClient is the subset of *redis.Client used by RedisEnrichmentStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisEnrichmentStore keeps entries as JSON documents that Redis expires on
// its own once they can no longer be served.
type RedisEnrichmentStore struct {
	client   RedisClient
	fullTTL  time.Duration
	emptyTTL time.Duration
}

// NewRedisEnrichmentStore builds a store whose keys live fullTTL when the
// entry has contacts and emptyTTL otherwise.
func NewRedisEnrichmentStore(client RedisClient, fullTTL, emptyTTL time.Duration) *RedisEnrichmentStore {
	return &RedisEnrichmentStore{client: client, fullTTL: fullTTL, emptyTTL: emptyTTL}
}

func enrichmentKey(website string) string {
	return enrichmentKeyPrefix + strings.TrimSpace(website)
}

// SetEnrichment stores entry under its website.
func (s *RedisEnrichmentStore) SetEnrichment(ctx context.Context, entry *entity.EnrichmentCacheEntry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	doc := entity.EnrichmentCacheEntry{
		Website:     row.website,
		Emails:      stringSliceOrEmpty(entry.Emails),
		Phones:      stringSliceOrEmpty(entry.Phones),
		WhatsApp:    stringSliceOrEmpty(entry.WhatsApp),
		ScrapedURLs: stringSliceOrEmpty(entry.ScrapedURLs),
		IsEmpty:     row.isEmpty,
		UpdatedAt:   row.updatedAt,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "redis: marshal enrichment")
	}

	ttl := s.fullTTL
	if doc.IsEmpty {
		ttl = s.emptyTTL
	}
	if err := s.client.Set(ctx, enrichmentKey(row.website), payload, ttl).Err(); err != nil {
		return eris.Wrapf(err, "redis: set enrichment for %s", row.website)
	}
	return nil
}

// GetEnrichment returns the stored entry for website.
func (s *RedisEnrichmentStore) GetEnrichment(ctx context.Context, website string) (*entity.EnrichmentCacheEntry, error) {
	raw, err := s.client.Get(ctx, enrichmentKey(website)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEnrichmentNotFound
		}
		return nil, eris.Wrapf(err, "redis: get enrichment for %s", website)
	}
	var entry entity.EnrichmentCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, eris.Wrapf(err, "redis: decode enrichment for %s", website)
	}
	return &entry, nil
}
