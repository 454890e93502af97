// Package metrics provides the centralized Prometheus metrics registry for
// the campground ingestion service. All metrics are defined in their
// respective packages (dyrt, ingest, store) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/dyrt):
//   - catalog_requests_total{status} (Counter): Catalog API requests by HTTP status
//   - catalog_request_duration_seconds (Histogram): Page request duration
//   - catalog_decode_failures_total (Counter): Responses dropped for malformed bodies
//   - catalog_items_skipped_total (Counter): Items dropped by record validation
//
// Retry Metrics (pkg/dyrt):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Pages that exhausted max retries
//
// Ingestion Metrics (pkg/ingest):
//   - ingest_runs_total{result} (Counter): Ingestion runs by outcome
//   - ingest_run_duration_seconds (Histogram): Full run duration
//   - ingest_pages_processed_total (Counter): Pages processed across runs
//   - ingest_records_total (Counter): Records handed to the sink
//
// Store Metrics (pkg/store):
//   - store_upserts_total (Counter): Campground upserts executed
//   - store_commits_total (Counter): Commit boundaries closed
//
// Example Prometheus Queries:
//
//   # Page fetch error rate
//   sum(rate(catalog_requests_total{status!~"2.."}[5m])) /
//   sum(rate(catalog_requests_total[5m]))
//
//   # Retry exhaustion by class
//   rate(catalog_retry_exhausted_total[15m])
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
//
//   # Records ingested per run on average
//   rate(ingest_records_total[1h]) / rate(ingest_runs_total[1h])
