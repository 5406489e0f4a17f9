// Package users is the user manager: Argon2id password hashing behind a
// process-wide pepper, TOTP secret generation/validation, user CRUD, and
// the decorrelated-work Validate path that equalizes the cost of a known
// versus unknown username.
package users

import "crypto/sha512"

// DerivePepper hashes the cluster secret with SHA-512 to produce the
// 64-byte pepper. The pepper is not passed to Argon2id as its secret
// parameter (golang.org/x/crypto/argon2 has none); it keys the
// HMAC-SHA256 pre-hash of each password instead (see peppered in
// hash.go). The pepper is never persisted; deriving it fresh at startup from the configured
// cluster secret is what lets multiple instances share verifiable hashes
// without storing the pepper anywhere.
func DerivePepper(clusterSecret string) []byte {
	sum := sha512.Sum512([]byte(clusterSecret))
	return sum[:]
}
