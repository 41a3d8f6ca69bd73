// Package session provides the session record, its compact binary encoding,
// and Redis-backed persistence.
//
// # Binary encoding
//
// A record is a version byte, a length-prefixed owner name, and the
// registration and expiry instants as big-endian unix nanoseconds. See
// [Encode].
//
// # Architecture boundaries
//
// This package stores and loads sessions. It does not sign session keys,
// check ownership, or decide validity beyond [Session.ValidAt]; the
// gateway's guard does that.
//
// # What this package must NOT do
//
//   - Import ledgergate, users, or sessionkey.
//   - Overwrite an existing record.
//   - Delete a record before its retention window ends.
package session
