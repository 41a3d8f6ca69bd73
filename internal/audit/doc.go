// Package audit implements async event dispatching for security-relevant
// gateway outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, operation, session and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. Which events to emit is
// decided by the gateway and the flow functions.
package audit
