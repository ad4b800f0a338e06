// Package enrich completes prospects with contacts scraped from their
// websites. Results are cached per website in a Store.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/clock"
	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/metrics"
	"github.com/octobees/prospector/internal/refine"
)

// Mode selects which prospects get enriched.
type Mode string

const (
	// ModeMissing enriches prospects lacking an email or a phone.
	ModeMissing Mode = "missing"
	// ModeAlways enriches every prospect with a website.
	ModeAlways Mode = "always"
	// ModeNever disables enrichment.
	ModeNever Mode = "never"
)

const (
	DefaultFullTTL  = 30 * 24 * time.Hour
	DefaultEmptyTTL = 10 * 24 * time.Hour
)

// ParseMode accepts missing, always or never; empty means missing.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMissing, nil
	case ModeMissing, ModeAlways, ModeNever:
		return m, nil
	default:
		return "", eris.Wrapf(apperr.ErrInvalidInput, "enrich: unknown mode %q", s)
	}
}

// Store persists crawl results per normalized website. GetEnrichment returns
// an error wrapping apperr.ErrNotFound when nothing is stored.
type Store interface {
	GetEnrichment(ctx context.Context, website string) (*entity.EnrichmentCacheEntry, error)
	SetEnrichment(ctx context.Context, entry *entity.EnrichmentCacheEntry) error
}

// SiteCrawler collects contacts from one website.
type SiteCrawler interface {
	CrawlSite(ctx context.Context, website string) (*CrawlResult, error)
}

// Config tunes cache freshness.
type Config struct {
	FullTTL  time.Duration
	EmptyTTL time.Duration
}

// Meta summarizes one enrichment batch.
type Meta struct {
	Mode          Mode    `json:"mode"`
	EnrichedCount int     `json:"enriched_count"`
	CacheHits     int     `json:"cache_hits"`
	TotalSeconds  float64 `json:"total_seconds"`
	AvgSeconds    float64 `json:"avg_seconds"`
	MaxEnrich     int     `json:"max_enrich"`
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock overrides the clock used for timings and cache freshness.
func WithClock(c clock.Clock) Option {
	return func(e *Enricher) {
		if c != nil {
			e.clock = c
		}
	}
}

// Enricher runs the crawl-or-cache loop over a batch of prospects.
type Enricher struct {
	crawler SiteCrawler
	store   Store
	clock   clock.Clock
	cfg     Config
}

// NewEnricher builds an Enricher. A nil store disables caching.
func NewEnricher(crawler SiteCrawler, store Store, cfg Config, opts ...Option) *Enricher {
	if cfg.FullTTL <= 0 {
		cfg.FullTTL = DefaultFullTTL
	}
	if cfg.EmptyTTL <= 0 {
		cfg.EmptyTTL = DefaultEmptyTTL
	}
	e := &Enricher{crawler: crawler, store: store, clock: clock.System(), cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich visits prospects in order and enriches at most maxEnrich of them.
// Prospects are updated in place; a failure on one prospect is recorded on it
// and the batch goes on.
func (e *Enricher) Enrich(ctx context.Context, prospects []*entity.Prospect, maxEnrich int, mode Mode) Meta {
	meta := Meta{Mode: mode, MaxEnrich: maxEnrich}
	if mode == ModeNever || maxEnrich <= 0 {
		return meta
	}

	start := e.clock.Now()
	for _, p := range prospects {
		if meta.EnrichedCount >= maxEnrich {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if p == nil || !p.HasWebsite() {
			continue
		}
		if mode == ModeMissing && p.HasEmail() && p.HasPhone() {
			continue
		}

		if e.enrichOne(ctx, p) {
			meta.CacheHits++
		}
		meta.EnrichedCount++
	}

	total := e.clock.Now().Sub(start).Seconds()
	meta.TotalSeconds = geo.RoundTo(total, 3)
	if meta.EnrichedCount > 0 {
		meta.AvgSeconds = geo.RoundTo(total/float64(meta.EnrichedCount), 3)
	}
	return meta
}

func (e *Enricher) enrichOne(ctx context.Context, p *entity.Prospect) (fromCache bool) {
	start := e.clock.Now()
	website := NormalizeURL(p.Website)

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("enrichment panicked", zap.String("website", website), zap.Any("panic", r))
			metrics.EnrichOutcomes.WithLabelValues("error").Inc()
			p.Enrichment = &entity.EnrichStatus{
				Attempted: true,
				Seconds:   geo.RoundTo(e.clock.Now().Sub(start).Seconds(), 3),
				Error:     fmt.Sprint(r),
			}
			fromCache = false
		}
	}()

	var (
		found   Contacts
		visited []string
		details entity.EnrichDetails
	)

	if cached := e.lookup(ctx, website); cached != nil {
		fromCache = true
		found = Contacts{Emails: cached.Emails, Phones: cached.Phones, WhatsApp: cached.WhatsApp}
		visited = cached.ScrapedURLs
		details.FromCache = true
		metrics.EnrichOutcomes.WithLabelValues("cache_hit").Inc()
	} else {
		res, err := e.crawler.CrawlSite(ctx, website)
		if err != nil {
			zap.L().Warn("enrichment failed", zap.String("website", website), zap.Error(err))
			metrics.EnrichOutcomes.WithLabelValues("error").Inc()
			p.Enrichment = &entity.EnrichStatus{
				Attempted: true,
				Seconds:   geo.RoundTo(e.clock.Now().Sub(start).Seconds(), 3),
				Error:     err.Error(),
			}
			return false
		}
		found = res.Contacts
		visited = res.Visited
		details = res.Trace
		e.save(ctx, res)
		metrics.EnrichOutcomes.WithLabelValues("crawled").Inc()
	}

	details.Added = merge(p, found)
	if visited == nil {
		visited = []string{}
	}
	p.ScrapedURLs = visited

	seconds := geo.RoundTo(e.clock.Now().Sub(start).Seconds(), 3)
	if details.FromCache {
		details.TotalSeconds = seconds
	}
	p.Enrichment = &entity.EnrichStatus{Attempted: true, Seconds: seconds, Details: &details}
	return fromCache
}

func (e *Enricher) lookup(ctx context.Context, website string) *entity.EnrichmentCacheEntry {
	if e.store == nil {
		return nil
	}
	entry, err := e.store.GetEnrichment(ctx, website)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			zap.L().Warn("enrichment cache read failed", zap.String("website", website), zap.Error(err))
		}
		return nil
	}
	if !entry.Fresh(e.clock.Now(), e.cfg.FullTTL, e.cfg.EmptyTTL) {
		return nil
	}
	return entry
}

func (e *Enricher) save(ctx context.Context, res *CrawlResult) {
	if e.store == nil {
		return
	}
	entry := &entity.EnrichmentCacheEntry{
		Website:     res.Website,
		Emails:      res.Contacts.Emails,
		Phones:      res.Contacts.Phones,
		WhatsApp:    res.Contacts.WhatsApp,
		ScrapedURLs: res.Visited,
		IsEmpty:     res.Contacts.Empty(),
		UpdatedAt:   e.clock.Now().UTC(),
	}
	if err := e.store.SetEnrichment(ctx, entry); err != nil {
		zap.L().Warn("enrichment cache write failed", zap.String("website", res.Website), zap.Error(err))
	}
}

// merge appends found contacts that p does not already carry and returns how
// many were added. Existing values are left untouched.
func merge(p *entity.Prospect, found Contacts) entity.AddedCounts {
	var added entity.AddedCounts
	p.Emails, added.Emails = appendNew(p.Emails, found.Emails, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
	p.Phones, added.Phones = appendNew(p.Phones, KeepInternationalPhones(found.Phones), refine.NormalizePhone)
	p.WhatsApp, added.WhatsApp = appendNew(p.WhatsApp, found.WhatsApp, strings.TrimSpace)
	return added
}

// appendNew appends the candidates whose key is not yet present in existing.
func appendNew(existing, candidates []string, key func(string) string) ([]string, int) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, v := range existing {
		seen[key(v)] = struct{}{}
	}
	out := append([]string{}, existing...)
	n := 0
	for _, v := range candidates {
		k := key(v)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(v))
		n++
	}
	return out, n
}
