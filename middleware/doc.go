// Package middleware holds the net/http adapters that sit in front of the
// gateway's request endpoint.
//
// # Adapters
//
//   - [RateLimit] rejects a client with 429 once its limiter says no.
//   - [AccessLog] writes one structured line per request.
//
// # Architecture boundaries
//
// This package translates HTTP semantics only. It never decodes gateway
// messages and never makes an authorization decision: every permission and
// session check happens inside the gateway.
//
// # What this package must NOT do
//
//   - Read or log request bodies.
//   - Access Redis directly (limiters own their storage).
//   - Turn a limiter backend error into a rejection.
package middleware
