// Package flows contains pure-function orchestrators for the gateway's
// security-relevant steps: the ordered credential and session guard, session
// issuance, user provisioning, and password change.
//
// Each Run function takes a typed dependency struct of function fields and
// returns a result or one of the host-level sentinel errors supplied in that
// struct. Flows own no resources; stores, signer, metrics and audit belong to
// the gateway.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import ledgergate (to avoid import cycles).
//   - Perform I/O directly.
package flows
