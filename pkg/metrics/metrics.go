// Package metrics documents the Prometheus metrics exported by the
// compound API client. All metrics are defined in their respective
// packages (client, cache) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - compound_api_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - compound_api_cache_misses_total (Counter): Cache misses
//   - compound_api_cache_size_bytes{layer="redis"} (Gauge): Bytes written to cache
//   - compound_api_304_responses_total (Counter): 304 Not Modified responses
//   - compound_api_conditional_requests_total (Counter): Conditional requests sent
//   - compound_api_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - compound_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - compound_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - compound_api_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - compound_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - compound_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - compound_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(compound_api_cache_hits_total[5m])) /
//   (sum(rate(compound_api_cache_hits_total[5m])) + sum(rate(compound_api_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(compound_api_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(compound_api_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(compound_api_304_responses_total[5m]) / rate(compound_api_requests_total[5m])
