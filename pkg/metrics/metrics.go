// Package metrics documents the Prometheus metrics exported by the Harvest
// client. Metrics are defined in their owning packages (client, pagination,
// cache, ratelimit, refresh) and registered with promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer every package registers with.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - harvest_requests_total{endpoint, status} (Counter)
//   - harvest_request_duration_seconds{endpoint} (Histogram)
//   - harvest_errors_total{class} (Counter): client, server, rate_limit, network
//
// Retry Metrics (pkg/client):
//   - harvest_retries_total (Counter)
//   - harvest_retry_backoff_seconds (Histogram)
//   - harvest_retry_exhausted_total (Counter)
//
// Pagination Metrics (pkg/pagination):
//   - harvest_pages_fetched_total (Counter)
//
// Cache Metrics (pkg/cache):
//   - harvest_cache_hits_total{kind} (Counter)
//   - harvest_cache_misses_total{kind} (Counter)
//   - harvest_cache_errors_total{operation} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - harvest_rate_limit_remaining (Gauge)
//   - harvest_rate_limit_wait_seconds (Histogram)
//
// Refresh Metrics (pkg/refresh):
//   - harvest_refresh_jobs_total{result} (Counter): success, error
//
// Example Prometheus Queries:
//
//   # Rate-limit pressure
//   rate(harvest_errors_total{class="rate_limit"}[5m])
//
//   # Cache Hit Rate
//   sum(rate(harvest_cache_hits_total[5m])) /
//   (sum(rate(harvest_cache_hits_total[5m])) + sum(rate(harvest_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(harvest_request_duration_seconds_bucket[5m]))
