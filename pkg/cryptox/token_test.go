package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-8)
		require.Error(t, err)
	})

	t.Run("encodes the requested entropy", func(t *testing.T) {
		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, TokenSize256)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		a, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		b, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("some-opaque-value")
	require.Equal(t, fp, FingerprintToken("some-opaque-value"))
	require.NotEqual(t, fp, FingerprintToken("another-value"))
	require.Len(t, fp, 43) // base64url SHA-256 without padding
}

func TestSecretRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("hunter2-but-longer")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifySecret("hunter2-but-longer", hash))
	require.ErrorIs(t, VerifySecret("wrong", hash), ErrSecretMismatch)
}

func TestVerifySecretMalformedHash(t *testing.T) {
	t.Parallel()

	require.Error(t, VerifySecret("anything", "not-a-phc-string"))
	require.Error(t, VerifySecret("anything", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"))
}
