// Package internal holds helpers private to ledgergate: session id and
// secret generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: daemon configuration file and environment overrides
//   - flows: guard, session issuance and account flows
//   - logging: credential-redacting slog handler
//   - metrics: lock-free counters and the dispatch latency histogram
//   - rate: per-client token buckets for the HTTP transport
//
// # What this package must NOT do
//
//   - Export types that appear in the public ledgergate API.
//   - Be imported by any package outside the ledgergate module.
package internal
