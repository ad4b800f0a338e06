// Package geocode resolves free-text places through Nominatim with a shared
// rate gate and an in-process TTL cache.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/clock"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/metrics"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	defaultTimeout     = 20 * time.Second
	defaultInterval    = time.Second
	defaultMaxRetries  = 2
	defaultBackoff     = time.Second
	defaultUserAgent   = "prospector/1.0 (+https://github.com/octobees/prospector)"
	fallbackBBoxRadius = 1.0
	minPlaceLength     = 2
)

// Result is a resolved place.
type Result struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	BBox     geo.BBox `json:"bbox"`
	Display  string   `json:"display_name"`
	CacheHit bool     `json:"cache_hit"`
}

// Center returns the resolved coordinate.
func (r Result) Center() geo.Point {
	return geo.Point{Lat: r.Lat, Lon: r.Lon}
}

// Config tunes the resolver.
type Config struct {
	BaseURL    string
	UserAgent  string
	Email      string
	Timeout    time.Duration
	Interval   time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// HTTPDoer is the subset of *http.Client used by the resolver.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithCache shares a cache between resolvers or injects a prepared one.
func WithCache(cache *Cache) Option {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithLimiter replaces the one-request-per-interval gate.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(r *Resolver) {
		if limiter != nil {
			r.limiter = limiter
		}
	}
}

// WithClock replaces the clock used for retry backoff.
func WithClock(c clock.Clock) Option {
	return func(r *Resolver) {
		if c != nil {
			r.clock = c
		}
	}
}

// Resolver turns place names into coordinates and bounding boxes. Every
// upstream request goes through a single rate gate, whatever the caller.
type Resolver struct {
	cfg     Config
	client  HTTPDoer
	cache   *Cache
	limiter *rate.Limiter
	clock   clock.Clock
	group   singleflight.Group
}

// NewResolver builds a Resolver with defaults for unset config fields.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}

	r := &Resolver{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   NewCache(0, 0),
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		clock:   clock.System(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheKey is the normalized form under which a place is cached.
func CacheKey(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}

// Resolve geocodes place. It fails with apperr.ErrNotFound when Nominatim
// has no match and apperr.ErrUpstreamUnavailable when it cannot answer.
func (r *Resolver) Resolve(ctx context.Context, place string) (*Result, error) {
	key := CacheKey(place)
	if len([]rune(key)) < minPlaceLength {
		return nil, eris.Wrapf(apperr.ErrInvalidInput, "geocode: place %q is too short", place)
	}

	if cached, ok := r.cache.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues("hit").Inc()
		cached.CacheHit = true
		return &cached, nil
	}

	// The shared lookup outlives any single caller; each caller only stops
	// waiting when its own context ends.
	flight := r.group.DoChan(key, func() (any, error) {
		if cached, ok := r.cache.Get(key); ok {
			cached.CacheHit = true
			return cached, nil
		}
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupBudget())
		defer cancel()

		res, err := r.lookup(lookupCtx, strings.TrimSpace(place))
		if err != nil {
			return Result{}, err
		}
		r.cache.Set(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, eris.Wrapf(fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, ctx.Err()), "geocode: gave up waiting for %q", place)
	case out := <-flight:
		if out.Err != nil {
			metrics.GeocodeLookups.WithLabelValues("error").Inc()
			return nil, out.Err
		}
		metrics.GeocodeLookups.WithLabelValues("miss").Inc()
		res := out.Val.(Result)
		return &res, nil
	}
}

// lookupBudget bounds a shared lookup: every attempt may wait for the rate
// gate, run to the request timeout and sleep its backoff.
func (r *Resolver) lookupBudget() time.Duration {
	attempts := time.Duration(r.cfg.MaxRetries + 1)
	return attempts*(r.cfg.Interval+r.cfg.Timeout) + r.cfg.Backoff*time.Duration(1<<r.cfg.MaxRetries)
}

type nominatimPlace struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

type retryableError struct {
	status int
	err    error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (r *Resolver) lookup(ctx context.Context, place string) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.clock.Sleep(ctx, r.cfg.Backoff*time.Duration(1<<(attempt-1))); err != nil {
				break
			}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		res, err := r.request(ctx, place)
		if err == nil {
			return res, nil
		}
		var retry *retryableError
		if !errors.As(err, &retry) {
			return Result{}, err
		}
		lastErr = err
		zap.L().Warn("geocode request failed",
			zap.String("place", place),
			zap.Int("attempt", attempt+1),
			zap.Int("status", retry.status),
			zap.Error(retry.err),
		)
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return Result{}, eris.Wrapf(fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, lastErr), "geocode: nominatim unavailable for %q", place)
}

func (r *Resolver) request(ctx context.Context, place string) (Result, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
		"q":              {place},
	}
	if r.cfg.Email != "" {
		params.Set("email", r.cfg.Email)
	}
	reqURL := strings.TrimRight(r.cfg.BaseURL, "/") + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, eris.Wrap(fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err), "geocode: request")
		}
		return Result{}, &retryableError{err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return Result{}, &retryableError{status: resp.StatusCode, err: fmt.Errorf("nominatim returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return Result{}, eris.Wrapf(apperr.ErrUpstreamUnavailable, "geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, &retryableError{status: resp.StatusCode, err: err}
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return Result{}, eris.Wrap(fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err), "geocode: parse response")
	}
	if len(places) == 0 {
		return Result{}, eris.Wrapf(apperr.ErrNotFound, "geocode: no match for %q", place)
	}
	return toResult(places[0])
}

// toResult reads Nominatim's [south, north, west, east] box and reorders it.
func toResult(p nominatimPlace) (Result, error) {
	box, boxOK := parseBoundingBox(p.BoundingBox)
	lat, latErr := strconv.ParseFloat(p.Lat, 64)
	lon, lonErr := strconv.ParseFloat(p.Lon, 64)
	center := geo.Point{Lat: lat, Lon: lon}
	centerOK := latErr == nil && lonErr == nil && center.Valid()

	switch {
	case centerOK && boxOK:
	case centerOK:
		box = geo.BBoxAround(center, fallbackBBoxRadius)
	case boxOK:
		center = box.Center()
	default:
		return Result{}, eris.Wrap(apperr.ErrNotFound, "geocode: match has no usable coordinates")
	}

	return Result{
		Lat:     center.Lat,
		Lon:     center.Lon,
		BBox:    box,
		Display: p.DisplayName,
	}, nil
}

func parseBoundingBox(raw []string) (geo.BBox, bool) {
	if len(raw) != 4 {
		return geo.BBox{}, false
	}
	var v [4]float64
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return geo.BBox{}, false
		}
		v[i] = f
	}
	box := geo.BBox{South: v[0], West: v[2], North: v[1], East: v[3]}
	return box, box.Valid()
}
