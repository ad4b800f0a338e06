package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/clock"
	"github.com/octobees/prospector/internal/metrics"
)

// DefaultEndpoints is the public Overpass pool.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.private.coffee/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// ErrResponseInvalid marks a reply that was not a usable Overpass JSON document.
var ErrResponseInvalid = errors.New("overpass: invalid response")

const (
	defaultBudget         = 40 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultAttempts       = 2
	defaultBaseBackoff    = time.Second
	maxResponseBytes      = 32 << 20
	defaultUserAgent      = "prospector/1.0 (+https://github.com/octobees/prospector)"
)

// LatLon is an element centroid.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Element is a node, way or relation returned with "out center".
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *LatLon           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Response is a decoded Overpass reply.
type Response struct {
	Elements []Element `json:"elements"`
	Endpoint string    `json:"-"`
	Attempts int       `json:"-"`
}

// EndpointError records one failed attempt.
type EndpointError struct {
	Endpoint   string
	Attempt    int
	StatusCode int
	Err        error
}

func (e *EndpointError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s attempt %d: HTTP %d: %v", e.Endpoint, e.Attempt, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s attempt %d: %v", e.Endpoint, e.Attempt, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// HTTPDoer is the subset of *http.Client used by the fetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config tunes the fetcher.
type Config struct {
	Endpoints           []string
	Budget              time.Duration
	RequestTimeout      time.Duration
	AttemptsPerEndpoint int
	BaseBackoff         time.Duration
	UserAgent           string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithClock overrides the clock.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithRand overrides the random source used for shuffling and jitter.
func WithRand(rnd *rand.Rand) Option {
	return func(f *Fetcher) {
		if rnd != nil {
			f.rnd = rnd
		}
	}
}

// Fetcher runs queries against a shuffled pool of endpoints within a global
// time budget.
type Fetcher struct {
	cfg    Config
	client HTTPDoer
	clock  clock.Clock

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFetcher builds a Fetcher, filling unset config fields with defaults.
func NewFetcher(cfg Config, opts ...Option) *Fetcher {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints
	}
	if cfg.Budget <= 0 {
		cfg.Budget = defaultBudget
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.AttemptsPerEndpoint <= 0 {
		cfg.AttemptsPerEndpoint = defaultAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	f := &Fetcher{
		cfg:    cfg,
		client: &http.Client{},
		clock:  clock.System(),
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type attemptResult int

const (
	attemptOK attemptResult = iota
	attemptRetry
	attemptNextEndpoint
)

// Fetch executes query and returns the decoded elements. When every endpoint
// fails the error wraps apperr.ErrUpstreamUnavailable and every recorded
// EndpointError.
func (f *Fetcher) Fetch(ctx context.Context, query string) (*Response, error) {
	start := f.clock.Now()
	defer func() {
		metrics.OverpassFetchDuration.Observe(f.clock.Now().Sub(start).Seconds())
	}()

	var failures []error
	attempts := 0

endpoints:
	for _, endpoint := range f.shuffledEndpoints() {
		for attempt := 0; attempt < f.cfg.AttemptsPerEndpoint; attempt++ {
			remaining := f.cfg.Budget - f.clock.Now().Sub(start)
			if remaining <= 0 {
				break endpoints
			}
			if err := ctx.Err(); err != nil {
				failures = append(failures, err)
				break endpoints
			}

			attempts++
			resp, status, result, err := f.attempt(ctx, endpoint, query, min(f.cfg.RequestTimeout, remaining))
			if result == attemptOK {
				metrics.OverpassAttempts.WithLabelValues(endpoint, "ok").Inc()
				resp.Endpoint = endpoint
				resp.Attempts = attempts
				return resp, nil
			}

			failure := &EndpointError{Endpoint: endpoint, Attempt: attempt + 1, StatusCode: status, Err: err}
			failures = append(failures, failure)
			metrics.OverpassAttempts.WithLabelValues(endpoint, outcomeLabel(status, err)).Inc()
			zap.L().Warn("overpass attempt failed",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Int("status", status),
				zap.Error(err),
			)

			if result == attemptNextEndpoint || attempt == f.cfg.AttemptsPerEndpoint-1 {
				continue endpoints
			}

			remaining = f.cfg.Budget - f.clock.Now().Sub(start)
			delay := min(f.backoff(attempt), remaining)
			if delay <= 0 {
				break endpoints
			}
			if err := f.clock.Sleep(ctx, delay); err != nil {
				failures = append(failures, err)
				break endpoints
			}
		}
	}

	if len(failures) == 0 {
		failures = append(failures, errors.New("overpass: time budget exhausted before any attempt"))
	}
	return nil, eris.Wrapf(
		fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, errors.Join(failures...)),
		"overpass: all endpoints failed after %d attempts", attempts,
	)
}

func (f *Fetcher) attempt(ctx context.Context, endpoint, query string, timeout time.Duration) (*Response, int, attemptResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, attemptNextEndpoint, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, attemptRetry, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, attemptRetry, fmt.Errorf("retryable status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, attemptNextEndpoint, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, attemptRetry, err
	}
	decoded, err := decodeResponse(body)
	if err != nil {
		return nil, resp.StatusCode, attemptNextEndpoint, err
	}
	return decoded, resp.StatusCode, attemptOK, nil
}

func decodeResponse(body []byte) (*Response, error) {
	var payload struct {
		Elements *[]Element `json:"elements"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if payload.Elements == nil {
		return nil, fmt.Errorf("%w: missing elements", ErrResponseInvalid)
	}
	return &Response{Elements: *payload.Elements}, nil
}

func (f *Fetcher) shuffledEndpoints() []string {
	out := append([]string(nil), f.cfg.Endpoints...)
	f.mu.Lock()
	f.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	f.mu.Unlock()
	return out
}

// backoff is base*2^attempt plus up to one base of jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	f.mu.Lock()
	jitter := f.rnd.Float64()
	f.mu.Unlock()
	base := float64(f.cfg.BaseBackoff)
	return time.Duration(base*math.Pow(2, float64(attempt)) + jitter*base)
}

func outcomeLabel(status int, err error) string {
	switch {
	case errors.Is(err, ErrResponseInvalid):
		return "invalid"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status > 0:
		return "client_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
