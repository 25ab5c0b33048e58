package sqlite

import (
	"context"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
)

type auditEventsRepo struct {
	db dbtx
}

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, name, owner_id, record_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.OwnerID, e.RecordID, e.Detail, e.CreatedAt,
	)
	return err
}

func (r *auditEventsRepo) ListAuditEventsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner_id, record_id, detail, created_at
		FROM audit_events WHERE owner_id = ?
		ORDER BY id DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Name, &e.OwnerID, &e.RecordID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *auditEventsRepo) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
