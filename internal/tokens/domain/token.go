package domain

import "time"

// TokenPair is what a successful issuance or rotation returns: the signed
// access token (JWT) plus the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshToken models the stored refresh token record.
//
// The opaque credential itself is never persisted; TokenHash is its SHA-256
// fingerprint. Revoked transitions false→true exactly once and is never
// reset; RevokedAt is set at that transition. OwnerID never changes after
// creation, and records are kept after revocation as reuse-detection history.
type RefreshToken struct {
	ID        string
	OwnerID   string
	TokenHash string // base64url SHA-256 of the opaque value
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the record's deadline has passed at the given
// instant.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IssuedRefreshToken is returned once at creation; Token is the only copy of
// the opaque credential that will ever exist.
type IssuedRefreshToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
