// Package permission provides the ordered privilege levels and the operation
// registry used by ledgergate authorization checks.
//
// # Levels
//
// Three levels are declared: ROOT, ADMIN and USER. A lower ordinal is more
// privileged, so an operation requiring level L admits holders of any level
// numerically <= L. [Level.Satisfies] is the only place that comparison is
// written.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. The
// [Registry] is generic over the handler type so the gateway can store its
// callables next to the requirement without an import cycle.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import ledgergate, session, or users.
//   - Accept registrations after [Registry.Freeze].
package permission
