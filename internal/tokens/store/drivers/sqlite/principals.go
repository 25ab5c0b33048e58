package sqlite

import (
	"context"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/store"
)

type principalsRepo struct {
	db dbtx
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	var p domain.Principal
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, active, created_at, updated_at
		FROM principals WHERE id = ?`, id).
		Scan(&p.ID, &p.Username, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return p, nil
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO principals (id, username, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *principalsRepo) SetPrincipalActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE principals SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
