package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for operator secrets (the admin API token). These are
// verified once per admin request, not per login, so the cost can sit at the
// RFC 9106 low-memory recommendation.
const (
	secretSaltLength  = 16
	secretKeyLength   = 32
	secretIterations  = 3
	secretMemory      = 64 * 1024
	secretParallelism = 2
)

var ErrSecretMismatch = errors.New("cryptox: secret does not match")

// HashSecret produces a PHC-format Argon2id hash of a secret, including salt
// and parameters, suitable for storing in configuration.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, secretSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, secretIterations, secretMemory, secretParallelism, secretKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		secretMemory,
		secretIterations,
		secretParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifySecret compares a plaintext secret against a PHC-format Argon2id
// hash. It returns ErrSecretMismatch when the secret is wrong and a
// descriptive error when the hash itself is malformed.
func VerifySecret(secret, encodedHash string) error {
	parts := strings.Split(encodedHash, "$")

	// Expected: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	if len(parts) != 6 {
		return errors.New("cryptox: invalid hash format")
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" {
		return errors.New("cryptox: unsupported hash algorithm or version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("cryptox: parse hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("cryptox: decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("cryptox: decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(secret), salt, iters, mem, par, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrSecretMismatch
	}
	return nil
}
