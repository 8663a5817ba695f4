package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// Upstream call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afs_cache_lookups_total",
			Help: "Cache lookups by store backend and result.",
		},
		[]string{"store", "result"},
	)

	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afs_cache_evictions_total",
			Help: "Entries evicted because the cache was full.",
		},
		[]string{"store"},
	)

	CacheEntriesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "afs_cache_entries",
			Help: "Current number of entries held by the cache.",
		},
		[]string{"store"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afs_upstream_requests_total",
			Help: "Requests sent to upstream providers by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afs_upstream_request_duration_seconds",
			Help:    "Latency of upstream provider requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"provider"},
	)

	SearchResultsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afs_search_results",
			Help:    "Number of places returned per search.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"category"},
	)
)

// ObserveCacheLookup records one cache lookup.
func ObserveCacheLookup(store, result string) {
	CacheLookupsTotal.WithLabelValues(store, result).Inc()
}

// ObserveCacheEviction records one capacity eviction.
func ObserveCacheEviction(store string) {
	CacheEvictionsTotal.WithLabelValues(store).Inc()
}

// SetCacheEntries publishes the current entry count of a store.
func SetCacheEntries(store string, n int) {
	CacheEntriesGauge.WithLabelValues(store).Set(float64(n))
}

// ObserveUpstream records the outcome and latency of one upstream request.
func ObserveUpstream(provider, outcome string, started time.Time) {
	UpstreamRequestsTotal.WithLabelValues(provider, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// ObserveSearchResults records the size of one search response.
// Raw key=value categories are folded into a single label to bound cardinality.
func ObserveSearchResults(category string, builtin bool, n int) {
	if !builtin {
		category = "raw"
	}
	SearchResultsHistogram.WithLabelValues(category).Observe(float64(n))
}
