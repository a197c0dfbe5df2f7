// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// upstream calls and caches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequestsTotal counts API requests by route pattern, method and status.
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentictrust_http_requests_total",
		Help: "Total HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	// httpRequestDuration tracks API latency.
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentictrust_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"route", "method"})

	// upstreamRequestsTotal counts indexer and gateway calls by result.
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentictrust_upstream_requests_total",
		Help: "Total upstream requests by target, operation and status",
	}, []string{"target", "op", "status"})

	// upstreamRequestDuration tracks upstream latency including retries.
	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentictrust_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds, retries included",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"target", "op"})

	// cacheLookupsTotal counts cache hits and misses by namespace.
	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentictrust_cache_lookups_total",
		Help: "Cache lookups by namespace and result",
	}, []string{"namespace", "result"})

	// graphLookupFailuresTotal counts counterparty lookups skipped during trust graph assembly.
	graphLookupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentictrust_graph_lookup_failures_total",
		Help: "Counterparty association lookups that failed during trust graph assembly",
	})
)

// ObserveHTTP records one served API request.
func ObserveHTTP(route, method string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveUpstream records one upstream call. Status 0 means no response was received.
func ObserveUpstream(target, op string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequestsTotal.WithLabelValues(target, op, label).Inc()
	upstreamRequestDuration.WithLabelValues(target, op).Observe(d.Seconds())
}

// CacheLookup records a cache hit or miss.
func CacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// GraphLookupFailed records a skipped counterparty lookup.
func GraphLookupFailed() {
	graphLookupFailuresTotal.Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
