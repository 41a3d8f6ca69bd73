// Package prometheus exposes gateway counters and the dispatch latency
// histogram through client_golang.
//
// [Collector] implements prometheus.Collector over
// [ledgergate.Gateway.MetricsSnapshot]; [Handler] mounts it on a private
// registry. Counter names are ledgergate_*_total and the histogram is
// ledgergate_dispatch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in the global Prometheus registry.
//   - Mutate gateway state.
package prometheus
