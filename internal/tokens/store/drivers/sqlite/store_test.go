package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/pkg/cryptox"
	"github.com/calderasec/keyturn/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newRecord(owner string, expiresAt time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.New().String(),
		OwnerID:   owner,
		TokenHash: cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256)),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	rec := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, rec.OwnerID, got.OwnerID)
	require.False(t, got.Revoked)
	require.Nil(t, got.RevokedAt)
	require.WithinDuration(t, rec.ExpiresAt, got.ExpiresAt, time.Second)

	byID, err := s.RefreshTokens().GetRefreshTokenByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, got.TokenHash, byID.TokenHash)
}

func TestGetRefreshTokenNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.RefreshTokens().GetRefreshTokenByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeRefreshTokenFlipsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	rec := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	first := time.Now().UTC()
	flipped, err := s.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, first)
	require.NoError(t, err)
	require.True(t, flipped)

	// Second revoke is a state no-op and must not move revoked_at.
	flipped, err = s.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, first.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, flipped)

	got, err := s.RefreshTokens().GetRefreshTokenByID(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)
	require.WithinDuration(t, first, *got.RevokedAt, time.Second)
}

func TestRevokeAllForOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	active1 := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	active2 := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	other := newRecord("owner-2", time.Now().Add(time.Hour).UTC())
	already := newRecord("owner-1", time.Now().Add(time.Hour).UTC())

	for _, rec := range []domain.RefreshToken{active1, active2, other, already} {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))
	}

	earlier := time.Now().Add(-time.Hour).UTC()
	flipped, err := s.RefreshTokens().RevokeRefreshToken(ctx, already.ID, earlier)
	require.NoError(t, err)
	require.True(t, flipped)

	now := time.Now().UTC()
	n, err := s.RefreshTokens().RevokeAllForOwner(ctx, "owner-1", now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// The pre-revoked record keeps its original revoked_at.
	got, err := s.RefreshTokens().GetRefreshTokenByID(ctx, already.ID)
	require.NoError(t, err)
	require.WithinDuration(t, earlier, *got.RevokedAt, time.Second)

	// The other owner's record is untouched.
	got, err = s.RefreshTokens().GetRefreshTokenByID(ctx, other.ID)
	require.NoError(t, err)
	require.False(t, got.Revoked)
}

func TestDeleteExpiredBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	old := newRecord("owner-1", time.Now().Add(-48*time.Hour).UTC())
	fresh := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, old))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, fresh))

	n, err := s.RefreshTokens().DeleteExpiredBefore(ctx, time.Now().Add(-24*time.Hour).UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.RefreshTokens().GetRefreshTokenByID(ctx, old.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.RefreshTokens().GetRefreshTokenByID(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	rec := newRecord("owner-1", time.Now().Add(time.Hour).UTC())
	errBoom := context.Canceled

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.RefreshTokens().GetRefreshTokenByID(ctx, rec.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrincipals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	p := domain.Principal{
		ID:        idx.New().String(),
		Username:  "mallory",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Principals().CreatePrincipal(ctx, p))

	got, err := s.Principals().GetPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, "mallory", got.Username)

	require.NoError(t, s.Principals().SetPrincipalActive(ctx, p.ID, false))
	got, err = s.Principals().GetPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	require.ErrorIs(t, s.Principals().SetPrincipalActive(ctx, "missing", true), store.ErrNotFound)
}

func TestAuditEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		e := domain.AuditEvent{
			ID:        idx.New().String(),
			Name:      domain.AuditRefreshTokenCreated,
			OwnerID:   "owner-1",
			RecordID:  idx.New().String(),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.AuditEvents().AppendAuditEvent(ctx, e))
	}

	events, err := s.AuditEvents().ListAuditEventsByOwner(ctx, "owner-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first: ULID ids sort by mint time.
	require.GreaterOrEqual(t, events[0].ID, events[1].ID)

	n, err := s.AuditEvents().DeleteAuditEventsBefore(ctx, time.Now().Add(time.Minute).UTC())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
