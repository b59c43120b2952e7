// Package metrics provides the centralized Prometheus metrics registry
// for the collection pipeline. All metrics are defined in their
// respective packages (fetch, paginate, ratelimit, quota, sink) to
// maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetch):
//   - coletor_fetch_requests_total{source, status} (Counter): Page fetches by source and HTTP status
//   - coletor_fetch_duration_seconds{source} (Histogram): Page fetch duration
//   - coletor_fetch_errors_total{source, class} (Counter): Failed fetches by error class
//     (not_found, client, server, network)
//
// Collection Metrics (pkg/paginate):
//   - coletor_pages_fetched_total{source} (Counter): Pages fetched
//   - coletor_records_collected_total{source} (Counter): Raw records accumulated
//   - coletor_collections_total{source, state} (Counter): Runs by terminal state
//     (done_exhausted, done_safety_cap, done_error, done_quota)
//   - coletor_collection_duration_seconds{source} (Histogram): Full run duration
//
// Rate Gate Metrics (pkg/ratelimit):
//   - coletor_rate_gate_throttles_total{source} (Counter): Requests delayed by the gate
//   - coletor_rate_gate_wait_seconds{source} (Histogram): Time spent waiting on the gate
//
// Quota Metrics (pkg/quota):
//   - coletor_quota_used{source} (Gauge): Units consumed this process run
//   - coletor_quota_denied_total{source} (Counter): Runs refused for insufficient quota
//
// Sink Metrics (pkg/sink):
//   - coletor_sink_rows_written_total{table} (Counter): Rows written to the warehouse
//   - coletor_sink_replace_seconds{table} (Histogram): Full-table replace duration
//
// Example Prometheus Queries:
//
//   # Collection failure rate
//   sum(rate(coletor_collections_total{state=~"done_error|done_quota"}[1h])) /
//   sum(rate(coletor_collections_total[1h]))
//
//   # Safety cap trips (should be ~0; a trip means a source misbehaves)
//   increase(coletor_collections_total{state="done_safety_cap"}[1d])
//
//   # P95 page fetch latency per source
//   histogram_quantile(0.95, rate(coletor_fetch_duration_seconds_bucket[5m]))
//
//   # Remaining Sienge quota headroom
//   40 - coletor_quota_used{source="sienge_vendas"}
