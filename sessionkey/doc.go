// Package sessionkey signs and verifies the opaque session keys handed to
// clients.
//
// A key is an HS256 JWT with jti set to the stored session id and sub set to
// the owner. Forged or altered keys fail [Signer.Parse]; the gateway reports
// them the same way as a key for a session that does not exist.
package sessionkey
