package domain

import "time"

// Audit event names. Only refresh-token-linked transitions are audited;
// access-token mints are stateless and high-frequency, so recording each one
// would swamp the log without adding revocation evidence.
const (
	AuditRefreshTokenCreated         = "REFRESH_TOKEN_CREATED"
	AuditRefreshTokenReuseDetected   = "REFRESH_TOKEN_REUSE_DETECTED"
	AuditAccessTokenRefreshed        = "ACCESS_TOKEN_REFRESHED"
	AuditRefreshTokenRevoked         = "REFRESH_TOKEN_REVOKED"
	AuditRefreshTokensRevokedForUser = "REFRESH_TOKENS_REVOKED_FOR_USER"
)

// AuditEvent is one append-only entry in the audit log. OwnerID identifies
// the affected principal when resolvable; RecordID the refresh-token record
// the event concerns.
type AuditEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id,omitempty"`
	RecordID  string    `json:"record_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
