package repo

import (
	"context"
	"database/sql"

	"timekeep/internal/domain"
)

func scanComment(row interface{ Scan(...any) error }) (domain.Comment, error) {
	var c domain.Comment
	var modified sql.NullString
	err := row.Scan(&c.ID, &c.TaskID, &c.Message, &c.Created, &modified)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Modified = optional(modified)
	return c, nil
}

func (r Repo) InsertComment(ctx context.Context, c domain.Comment) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO comments(task_id,message,created,modified) VALUES (?,?,?,?)`,
		c.TaskID, c.Message, c.Created, nullableptr(c.Modified))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetComment(ctx context.Context, id int64) (domain.Comment, error) {
	return scanComment(r.DB.QueryRowContext(ctx, `SELECT id,task_id,message,created,modified FROM comments WHERE id=?`, id))
}

func (r Repo) UpdateComment(ctx context.Context, c domain.Comment) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE comments SET message=?,modified=? WHERE id=?`,
		c.Message, nullableptr(c.Modified), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteComment(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListComments returns a task's comments, oldest first.
func (r Repo) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,message,created,modified FROM comments WHERE task_id=? ORDER BY created ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
