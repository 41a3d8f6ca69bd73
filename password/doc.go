// Package password implements Argon2id hashing and verification.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash are unpadded standard base64. Verification reads the cost
// parameters from the stored string, so raising [Config] costs never breaks
// existing hashes; [Argon2.NeedsRehash] reports when a stored hash is weaker
// than the current configuration.
//
// This package never stores passwords and never logs plaintext.
package password
