// Package ledgergate authenticates, authorizes and dispatches requests to a
// fixed set of named operations.
//
// A client sends one protobuf-encoded request naming an operation, a user,
// a password, an optional session key and an opaque payload. [Gateway.Handle]
// decodes it, looks the operation up in a frozen registry, runs the ordered
// credential and session checks when the operation requires a permission
// level, invokes the handler, and returns one encoded response. Every
// failure is reported as an unsuccessful response carrying a fixed
// diagnostic message; nothing escapes Handle as an error or a panic.
//
// # Architecture boundaries
//
// ledgergate is the public surface: [Builder], [Config], [Gateway] and the
// collaborator interfaces ([UserStore], [SessionStore], [Ledger]). Flow
// orchestration, metrics storage, audit dispatch and log sanitizing live
// under internal/.
//
// # What this package must NOT do
//
//   - Dispatch a restricted operation before every guard check has passed.
//   - Reveal whether a user exists through a distinct message.
//   - Log passwords or session keys.
package ledgergate
