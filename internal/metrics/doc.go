// Package metrics provides lock-free counters and the dispatch latency
// histogram for ledgergate.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// [sync/atomic.AddUint64]. The histogram has 8 fixed buckets (<=5ms ... +Inf).
// Neither allocates on the write path.
//
// Export to Prometheus and OpenTelemetry lives in metrics/export and reads
// [Snapshot] values. This package performs no I/O.
package metrics
