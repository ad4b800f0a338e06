package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/metrics"
)

const (
	defaultPageTimeout = 15 * time.Second
	defaultMaxBodySize = 1 << 20
	defaultUserAgent   = "prospector/1.0 (+https://github.com/octobees/prospector)"
)

// Page is one fetched document. Body is empty when the server answered with
// an error status.
type Page struct {
	URL        string
	StatusCode int
	Body       string
	Elapsed    time.Duration
}

// PageFetcher downloads a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// HTTPDoer is the subset of *http.Client used by HTTPPageFetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPPageFetcher fetches pages over HTTP, following redirects, with a
// per-request timeout and a body size cap.
type HTTPPageFetcher struct {
	client      HTTPDoer
	userAgent   string
	maxBodySize int64
}

// NewHTTPPageFetcher builds a fetcher. A nil client gets a default one with
// the given timeout.
func NewHTTPPageFetcher(client HTTPDoer, timeout time.Duration, userAgent string) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPPageFetcher{client: client, userAgent: userAgent, maxBodySize: defaultMaxBodySize}
}

// Fetch implements PageFetcher. Transport failures return an error; HTTP
// error statuses return the page with an empty body and an error naming the
// status.
func (f *HTTPPageFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	start := time.Now()
	page := Page{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return page, eris.Wrapf(err, "enrich: build request for %s", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		page.Elapsed = time.Since(start)
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return page, eris.Wrapf(err, "enrich: fetch %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	page.StatusCode = resp.StatusCode
	metrics.PagesFetched.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		page.Elapsed = time.Since(start)
		return page, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	page.Elapsed = time.Since(start)
	if err != nil {
		return page, eris.Wrapf(err, "enrich: read %s", url)
	}
	page.Body = string(body)
	return page, nil
}
