// Package otel publishes gateway metrics through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers an Int64ObservableCounter per gateway counter and
// an Int64ObservableGauge per latency bucket. One callback reads
// [ledgergate.Gateway.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate gateway state.
package otel
