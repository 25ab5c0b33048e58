package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed reports a structurally invalid token.
	ErrMalformed = errors.New("jwtx: malformed token")
	// ErrInvalidSig reports a signature that does not verify, including
	// tokens signed with an unexpected algorithm.
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	// ErrExpired reports a token past its embedded expiry (or before nbf).
	ErrExpired = errors.New("jwtx: token expired")
)

// Codec signs and verifies access tokens with a single Ed25519 key pair.
type Codec struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewCodec builds a codec from an existing Ed25519 private key.
func NewCodec(priv ed25519.PrivateKey, issuer string) (*Codec, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid ed25519 private key")
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwtx: private key has no ed25519 public half")
	}
	return &Codec{priv: priv, pub: pub, issuer: issuer}, nil
}

// NewCodecFromPEM builds a codec from a PKCS8-encoded Ed25519 key.
func NewCodecFromPEM(pemKey []byte, issuer string) (*Codec, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8 key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: key is not ed25519")
	}
	return NewCodec(priv, issuer)
}

// GenerateCodec creates a codec with a fresh ephemeral key pair. Tokens do
// not survive a restart of the signing process, which is acceptable for
// short-lived access tokens.
func GenerateCodec(issuer string) (*Codec, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate key: %w", err)
	}
	return NewCodec(priv, issuer)
}

// Issue mints a signed access token for subject with the given ttl. scopeID
// may be empty.
func (c *Codec) Issue(subject, scopeID string, ttl time.Duration) (string, error) {
	claims := NewAccessClaims(subject, scopeID, c.issuer, ttl, time.Now().UTC())
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(c.priv)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and embedded expiry and returns the decoded
// claims unchanged. Failures map onto ErrMalformed, ErrInvalidSig or
// ErrExpired.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, ErrInvalidSig
			}
			return c.pub, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(c.issuer),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}
	return claims, nil
}
