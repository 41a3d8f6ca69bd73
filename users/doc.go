// Package users holds the user record and its Redis-backed store.
//
// Each user is one hash at <prefix>:<name> with the fields password_hash,
// permission (ordinal) and created_at (unix seconds). Users are never deleted
// here.
package users
