// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prospector"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// GeocodeLookups counts resolver calls by result: hit, miss, error.
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocode lookups by cache outcome.",
		},
		[]string{"result"},
	)

	OverpassAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overpass_attempts_total",
			Help:      "Overpass requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	OverpassFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overpass_fetch_duration_seconds",
			Help:      "Wall time spent fetching one query across all endpoints.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// EnrichOutcomes counts per-prospect enrichment results: cache_hit, crawled, error.
	EnrichOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_outcomes_total",
			Help:      "Website enrichment attempts by outcome.",
		},
		[]string{"outcome"},
	)

	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_pages_fetched_total",
			Help:      "Website pages fetched during enrichment by status class.",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End to end prospect search duration.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"result"},
	)
)

// StatusClass buckets an HTTP status code as 2xx, 3xx, 4xx, 5xx or error.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}
