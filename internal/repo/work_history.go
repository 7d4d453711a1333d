package repo

import (
	"context"
	"database/sql"

	"timekeep/internal/domain"
)

const intervalColumns = `id,task_id,start_date,end_date,elapsed_duration`

func scanInterval(row interface{ Scan(...any) error }) (domain.WorkInterval, error) {
	var iv domain.WorkInterval
	var end sql.NullString
	err := row.Scan(&iv.ID, &iv.TaskID, &iv.Start, &end, &iv.ElapsedDuration)
	if err == sql.ErrNoRows {
		return iv, ErrNotFound
	}
	if err != nil {
		return iv, err
	}
	iv.End = optional(end)
	return iv, nil
}

// ListWorkHistory returns all intervals for a task, oldest first.
func (r Repo) ListWorkHistory(ctx context.Context, taskID int64) ([]domain.WorkInterval, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+intervalColumns+` FROM work_history WHERE task_id=? ORDER BY start_date ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.WorkInterval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// GetWorkInterval fetches one interval by id.
func (r Repo) GetWorkInterval(ctx context.Context, id int64) (domain.WorkInterval, error) {
	return scanInterval(r.DB.QueryRowContext(ctx, `SELECT `+intervalColumns+` FROM work_history WHERE id=?`, id))
}

// InsertWorkInterval adds an interval row inside the caller's tx. End
// may be nil for an open interval.
func (r Repo) InsertWorkInterval(ctx context.Context, tx *sql.Tx, iv domain.WorkInterval) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO work_history(task_id,start_date,end_date,elapsed_duration) VALUES (?,?,?,?)`,
		iv.TaskID, iv.Start, nullableptr(iv.End), iv.ElapsedDuration)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateWorkInterval rewrites an interval's bounds and elapsed seconds.
func (r Repo) UpdateWorkInterval(ctx context.Context, tx *sql.Tx, iv domain.WorkInterval) error {
	res, err := tx.ExecContext(ctx, `UPDATE work_history SET start_date=?,end_date=?,elapsed_duration=? WHERE id=?`,
		iv.Start, nullableptr(iv.End), iv.ElapsedDuration, iv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkInterval removes an interval inside the caller's tx.
func (r Repo) DeleteWorkInterval(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM work_history WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWorkHistoryBetween returns closed intervals overlapping the given
// RFC 3339 range across all tasks, optionally restricted to tasks
// carrying one of the tag values. Used by metrics summaries.
func (r Repo) ListWorkHistoryBetween(ctx context.Context, start, end string, tagValues []string) ([]domain.WorkInterval, error) {
	query := `SELECT ` + intervalColumns + ` FROM work_history WHERE end_date IS NOT NULL AND end_date >= ? AND start_date <= ?`
	args := []any{start, end}
	if len(tagValues) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM task_tags tt JOIN tags g ON g.id=tt.tag_id WHERE tt.task_id=work_history.task_id AND g.value IN (`
		for i, v := range tagValues {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, v)
		}
		query += `))`
	}
	query += ` ORDER BY start_date ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.WorkInterval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
