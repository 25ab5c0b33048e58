package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/audit"
	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/pkg/cryptox"
	"github.com/calderasec/keyturn/pkg/idx"
	"github.com/calderasec/keyturn/pkg/jwtx"
	"github.com/calderasec/keyturn/pkg/lifespan"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// errRotationRace signals that a concurrent rotation consumed the presented
// token between our read and our conditional revoke. The loser takes the
// reuse path: by the time it observed the record, the token was spent.
var errRotationRace = errors.New("service: rotation lost conditional revoke")

// AccessTokenCodec is the stateless sign/verify capability the service
// consumes. Verification failures distinguish malformed/forged from expired,
// but that distinction is never surfaced to external callers.
type AccessTokenCodec interface {
	Issue(subject, scopeID string, ttl time.Duration) (string, error)
	Verify(token string) (jwtx.Claims, error)
}

// TokenService orchestrates issuance, validation, rotation and revocation of
// tokens. Concurrency safety for rotation lives in the store's conditional
// revoke; the service itself holds no locks.
type TokenService struct {
	Codec AccessTokenCodec
	Store store.Store
	Audit audit.Sink

	// AccessTTL is the access-token lifetime, already resolved from config.
	AccessTTL time.Duration

	// RefreshTTL is the raw configured refresh lifetime ("7d", "24h", a bare
	// day count). Kept unresolved so every issuance computes its deadline
	// relative to its own now.
	RefreshTTL string
}

// IssueAccessToken mints a stateless signed access token for the subject.
// Nothing is persisted and no audit event is emitted: access-token mints are
// high-frequency and carry no revocation state.
func (s *TokenService) IssueAccessToken(ctx context.Context, subjectID, scopeID string) (string, error) {
	token, err := s.Codec.Issue(subjectID, scopeID, s.AccessTTL)
	if err != nil {
		return "", domain.Internal("issue access token", err)
	}
	return token, nil
}

// IssueRefreshToken creates and persists a fresh refresh-token record for
// the owner. The returned opaque value is the only copy that will ever
// exist; the store keeps just its fingerprint.
func (s *TokenService) IssueRefreshToken(ctx context.Context, ownerID string) (domain.IssuedRefreshToken, error) {
	now := time.Now().UTC()

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.IssuedRefreshToken{}, domain.Internal("generate refresh token", err)
	}

	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		OwnerID:   ownerID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: lifespan.ParseAt(now, s.RefreshTTL),
		CreatedAt: now,
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return domain.IssuedRefreshToken{}, domain.Internal("persist refresh token", err)
	}

	s.Audit.Emit(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditRefreshTokenCreated,
		OwnerID:   ownerID,
		RecordID:  rec.ID,
		Detail:    "expires_at=" + rec.ExpiresAt.Format(time.RFC3339),
		CreatedAt: now,
	})

	return domain.IssuedRefreshToken{
		ID:        rec.ID,
		Token:     opaque,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// ValidateAccessToken verifies signature and expiry and returns the decoded
// claims. Every codec failure collapses into one Unauthorized reason so
// callers cannot probe the signature-vs-expiry distinction.
func (s *TokenService) ValidateAccessToken(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return jwtx.Claims{}, domain.Unauthorized(domain.ReasonInvalidAccessToken)
	}
	return claims, nil
}

// RotateOnRefresh exchanges a presented refresh token for a fresh
// access/refresh pair, revoking the presented one.
//
// The checks run in a fixed order: lookup, reuse, expiry, owner status.
// Reuse must come first so that a replayed-but-now-expired token still nukes
// every session for the owner instead of being dismissed as merely expired.
func (s *TokenService) RotateOnRefresh(ctx context.Context, presentedToken string) (domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	rec, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(presentedToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, domain.Unauthorized(domain.ReasonInvalidRefreshToken)
		}
		return domain.TokenPair{}, domain.Internal("lookup refresh token", err)
	}

	// A revoked token being presented again is a reuse event: either theft
	// or a client replaying a consumed token. Both invalidate trust in every
	// session the owner holds.
	if rec.Revoked {
		return domain.TokenPair{}, s.failReuse(ctx, rec, now)
	}

	if rec.Expired(now) {
		return domain.TokenPair{}, domain.Unauthorized(domain.ReasonRefreshTokenExpired)
	}

	principal, err := s.Store.Principals().GetPrincipalByID(ctx, rec.OwnerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, domain.Internal("lookup principal", err)
	}
	if err != nil || !principal.Active {
		// Missing principals read as inactive: either way no new session.
		// The record is deliberately not consumed on this branch.
		return domain.TokenPair{}, domain.Unauthorized(domain.ReasonAccountInactive)
	}

	accessToken, err := s.Codec.Issue(rec.OwnerID, "", s.AccessTTL)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("issue access token", err)
	}

	newOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("generate refresh token", err)
	}

	newRec := domain.RefreshToken{
		ID:        idx.New().String(),
		OwnerID:   rec.OwnerID,
		TokenHash: cryptox.FingerprintToken(newOpaque),
		ExpiresAt: lifespan.ParseAt(now, s.RefreshTTL),
		CreatedAt: now,
	}

	// Revoke-old and create-new commit together. The conditional revoke is
	// the race arbiter: at most one concurrent rotation of the same token
	// can flip the record, everyone else lands on errRotationRace.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		flipped, err := tx.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, now)
		if err != nil {
			return err
		}
		if !flipped {
			return errRotationRace
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRec)
	})
	if errors.Is(err, errRotationRace) {
		l.Warn("refresh rotation race detected", "record_id", rec.ID, "owner_id", rec.OwnerID)
		rec.Revoked = true
		return domain.TokenPair{}, s.failReuse(ctx, rec, now)
	}
	if err != nil {
		return domain.TokenPair{}, domain.Internal("rotate refresh token", err)
	}

	s.Audit.Emit(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditRefreshTokenCreated,
		OwnerID:   newRec.OwnerID,
		RecordID:  newRec.ID,
		Detail:    "expires_at=" + newRec.ExpiresAt.Format(time.RFC3339),
		CreatedAt: now,
	})
	s.Audit.Emit(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditAccessTokenRefreshed,
		OwnerID:   rec.OwnerID,
		RecordID:  rec.ID,
		CreatedAt: now,
	})

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// failReuse handles presentation of an already-revoked token: revoke every
// live session the owner holds, record the event, and reject.
func (s *TokenService) failReuse(ctx context.Context, rec domain.RefreshToken, now time.Time) error {
	l := slogx.FromContext(ctx)

	n, err := s.Store.RefreshTokens().RevokeAllForOwner(ctx, rec.OwnerID, now)
	if err != nil {
		// The rejection stands either way, but a failed bulk revoke leaves
		// live sessions behind a detected compromise. Surface it.
		return domain.Internal("revoke sessions after reuse", err)
	}

	l.Warn("refresh token reuse detected",
		"owner_id", rec.OwnerID,
		"record_id", rec.ID,
		"sessions_revoked", n,
	)

	s.Audit.Emit(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditRefreshTokenReuseDetected,
		OwnerID:   rec.OwnerID,
		RecordID:  rec.ID,
		CreatedAt: now,
	})

	return domain.Unauthorized(domain.ReasonRefreshTokenReused)
}

// RevokeRefreshToken revokes a single record by id. Idempotent: revoking an
// already-revoked (or unknown) record is a state no-op that still leaves an
// audit trail.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, recordID string) error {
	now := time.Now().UTC()

	event := domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditRefreshTokenRevoked,
		CreatedAt: now,
	}

	rec, err := s.Store.RefreshTokens().GetRefreshTokenByID(ctx, recordID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Owner not resolvable; fall back to labeling with the record id.
		event.RecordID = recordID
	case err != nil:
		return domain.Internal("lookup refresh token", err)
	default:
		if _, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, now); err != nil {
			return domain.Internal("revoke refresh token", err)
		}
		event.OwnerID = rec.OwnerID
		event.RecordID = rec.ID
	}

	s.Audit.Emit(ctx, event)
	return nil
}

// RevokePresentedRefreshToken revokes the record matching an opaque refresh
// token presented by a client. Unknown tokens succeed silently so the
// endpoint leaks nothing about which tokens exist.
func (s *TokenService) RevokePresentedRefreshToken(ctx context.Context, presentedToken string) error {
	rec, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(presentedToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return domain.Internal("lookup refresh token", err)
	}
	return s.RevokeRefreshToken(ctx, rec.ID)
}

// RevokeAllForOwner bulk-revokes every active record the owner holds. One
// audit event covers the whole batch; already-revoked records are untouched.
func (s *TokenService) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	now := time.Now().UTC()

	n, err := s.Store.RefreshTokens().RevokeAllForOwner(ctx, ownerID, now)
	if err != nil {
		return domain.Internal("revoke refresh tokens for owner", err)
	}

	s.Audit.Emit(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Name:      domain.AuditRefreshTokensRevokedForUser,
		OwnerID:   ownerID,
		Detail:    "revoked=" + strconv.FormatInt(n, 10),
		CreatedAt: now,
	})
	return nil
}

// ResolvePrincipalFromAccessToken validates the token and loads the
// principal it names.
func (s *TokenService) ResolvePrincipalFromAccessToken(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := s.ValidateAccessToken(ctx, token)
	if err != nil {
		return domain.Principal{}, err
	}

	principal, err := s.Store.Principals().GetPrincipalByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, domain.Unauthorized(domain.ReasonUserNotFound)
		}
		return domain.Principal{}, domain.Internal("lookup principal", err)
	}
	if !principal.Active {
		return domain.Principal{}, domain.Unauthorized(domain.ReasonAccountInactive)
	}
	return principal, nil
}

// StartSession issues an initial access/refresh pair for an active
// principal. This is the entry point the admin-guarded session endpoint
// uses; credential verification happens upstream and is out of scope here.
func (s *TokenService) StartSession(ctx context.Context, principalID, scopeID string) (domain.TokenPair, error) {
	principal, err := s.Store.Principals().GetPrincipalByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, domain.Unauthorized(domain.ReasonUserNotFound)
		}
		return domain.TokenPair{}, domain.Internal("lookup principal", err)
	}
	if !principal.Active {
		return domain.TokenPair{}, domain.Unauthorized(domain.ReasonAccountInactive)
	}

	accessToken, err := s.IssueAccessToken(ctx, principal.ID, scopeID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.IssueRefreshToken(ctx, principal.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}
