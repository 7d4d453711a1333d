package repo

import (
	"context"
	"database/sql"

	"timekeep/internal/domain"
)

// ListEvents returns the most recent change-log rows, newest first.
func (r Repo) ListEvents(ctx context.Context, limit int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),COALESCE(correlation_id,''),payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.CorrelationID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEventsForEntity reports how many events reference the entity.
func (r Repo) CountEventsForEntity(ctx context.Context, entityKind, entityID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE entity_kind=? AND entity_id=?`, entityKind, entityID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
