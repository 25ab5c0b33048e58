package store

import (
	"context"
	"errors"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Principals() Principals
	RefreshTokens() RefreshTokens
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back if fn errors,
	// committed otherwise. This is the recommended way to run multi-step
	// operations that must be atomic, e.g. refresh rotation.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Principals interface {
	// GetPrincipalByID returns a principal by id.
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)

	// CreatePrincipal inserts a new principal (id is provided by app via ULID).
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	// SetPrincipalActive flips the active flag and bumps updated_at.
	SetPrincipalActive(ctx context.Context, id string, active bool) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by token fingerprint. Revoked
	// and expired records are still returned; the reuse check needs them.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// GetRefreshTokenByID returns the record by id.
	GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error)

	// RevokeRefreshToken conditionally flips revoked on a single record
	// (UPDATE ... WHERE id = ? AND revoked = 0) and reports whether this
	// call performed the transition. Concurrent revocations of the same
	// record serialize here: exactly one caller observes flipped = true.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) (flipped bool, err error)

	// RevokeAllForOwner bulk-revokes every non-revoked record of the owner
	// and returns how many rows transitioned. Already-revoked rows keep
	// their original revoked_at.
	RevokeAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error)

	// ListByOwner returns all records for an owner, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.RefreshToken, error)

	// DeleteExpiredBefore removes records whose expires_at is older than the
	// cutoff. Retention housekeeping only; the lifecycle core never calls it.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditEvents interface {
	// AppendAuditEvent stores one event. The table is append-only.
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEventsByOwner returns events for an owner, newest first,
	// capped at limit.
	ListAuditEventsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AuditEvent, error)

	// DeleteAuditEventsBefore removes events older than the cutoff.
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
