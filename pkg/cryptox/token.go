// Package cryptox provides the small crypto helpers the token service needs:
// opaque credential generation, deterministic fingerprints for storage, and
// Argon2id hashing for long-lived operator secrets.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Opaque credential sizes in bytes before encoding.
const (
	// TokenSize128 gives 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 gives 256 bits of entropy (43 chars base64url). This is
	// the size used for refresh tokens; collision probability is negligible.
	TokenSize256 = 32
)

// GenerateToken returns a cryptographically random opaque credential of the
// given byte length, encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is GenerateToken for initialization paths where a failing
// system RNG is unrecoverable anyway.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(err)
	}
	return token
}

// FingerprintToken returns the base64url SHA-256 of a token. Only the
// fingerprint is persisted, so a leaked database exposes nothing presentable.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
