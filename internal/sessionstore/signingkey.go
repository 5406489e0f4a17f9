package sessionstore

import "crypto/sha512"

// DeriveSigningKey derives the session cookie's HMAC signing key from the
// cluster secret. This is a distinct derivation from users.DerivePepper's
// Argon2 pepper -- both come from the same configured secret, but a
// domain-separation suffix keeps the two derived keys independent, so a
// compromise of one derived use doesn't hand over the other.
func DeriveSigningKey(clusterSecret string) []byte {
	sum := sha512.Sum512(append([]byte(clusterSecret), []byte("ruuth-session-signing-key")...))
	return sum[:]
}
