package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters, OWASP-recommended tuning for interactive logins.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MiB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// peppered runs password through HMAC-SHA256 keyed by pepper before
// Argon2id hashing, since golang.org/x/crypto/argon2 exposes no secret/"K"
// parameter to fold a pepper into directly. The HMAC output, not the raw
// password, is what Argon2id ever sees: a leaked password hash is still
// unusable without the pepper, and the pepper itself is still never
// persisted.
func peppered(password string, pepper []byte) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// HashPassword produces an Argon2id PHC string for password, peppered with
// pepper. Output format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func HashPassword(password string, pepper []byte) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey(peppered(password, pepper), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash), nil
}

// VerifyPassword checks password against an Argon2id PHC string, peppered
// with pepper. Parse errors and mismatches both yield false -- the caller
// treats both as "password_valid = false", never propagating a parse
// failure as a different outcome than a wrong password.
func VerifyPassword(password, encodedHash string, pepper []byte) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey(peppered(password, pepper), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}
