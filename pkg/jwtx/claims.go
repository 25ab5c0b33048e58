// Package jwtx is the access-token codec: stateless sign/verify of compact
// EdDSA-signed JWTs. The lifecycle service treats it as a black box that can
// mint a token for a subject and hand back the embedded payload on verify.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Short-lived access tokens bound the damage of a
// leaked bearer token; refresh tokens trade that off for user convenience.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the access-token payload. Kept additive so older verifiers keep
// working as fields are introduced.
type Claims struct {
	jwt.RegisteredClaims

	// ScopeID optionally narrows the subject to a secondary context, e.g. a
	// wallet or device session. Opaque to this package.
	ScopeID string `json:"sid,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(subject, scopeID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		ScopeID: scopeID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
