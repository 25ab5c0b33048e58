package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, owner_id, token_hash, expires_at, revoked, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.TokenHash, t.ExpiresAt, t.Revoked, mapOptionalTime(t.RevokedAt), t.CreatedAt,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens WHERE id = ?`, id)
	return scanRefreshToken(row)
}

// RevokeRefreshToken is the serialization point for concurrent rotation: the
// conditional update means only one caller can move a record from active to
// revoked, and that caller sees flipped = true.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		WHERE id = ? AND revoked = 0`, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		WHERE owner_id = ? AND revoked = 0`, at, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens WHERE owner_id = ? ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(s scanner) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
	)
	err := s.Scan(&t.ID, &t.OwnerID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}
