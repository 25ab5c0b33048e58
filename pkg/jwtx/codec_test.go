package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := GenerateCodec("keyturn-test")
	require.NoError(t, err)
	return c
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	token, err := codec.Issue("user-123", "wallet-9", 15*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "wallet-9", claims.ScopeID)
	require.Equal(t, "keyturn-test", claims.Issuer)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyEmptyScope(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	token, err := codec.Issue("user-123", "", time.Minute)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Empty(t, claims.ScopeID)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	token, err := codec.Issue("user-123", "", -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	other := newTestCodec(t)

	token, err := codec.Issue("user-123", "", time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(tok)
		require.ErrorIs(t, err, ErrMalformed, "token %q", tok)
	}
}

func TestNewCodecRejectsBadKey(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(ed25519.PrivateKey{0x01, 0x02}, "x")
	require.Error(t, err)
}

func TestNewCodecFromExplicitKey(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	codec, err := NewCodec(priv, "issuer-a")
	require.NoError(t, err)

	token, err := codec.Issue("subject", "", time.Minute)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "subject", claims.Subject)
}
