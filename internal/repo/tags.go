package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"timekeep/internal/domain"
)

var ErrDuplicateTag = errors.New("tag already exists")

// InsertTag creates a tag, returning ErrDuplicateTag when the value
// already exists.
func (r Repo) InsertTag(ctx context.Context, value string) (domain.Tag, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO tags(value) VALUES (?)`, value)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Tag{}, ErrDuplicateTag
		}
		return domain.Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Tag{}, err
	}
	return domain.Tag{ID: id, Value: value}, nil
}

// GetTag fetches a tag by id.
func (r Repo) GetTag(ctx context.Context, id int64) (domain.Tag, error) {
	var t domain.Tag
	err := r.DB.QueryRowContext(ctx, `SELECT id,value FROM tags WHERE id=?`, id).Scan(&t.ID, &t.Value)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// ListTags returns all tags ordered by value.
func (r Repo) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,value FROM tags ORDER BY value ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Value); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag and its task associations.
func (r Repo) DeleteTag(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tags WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachTag associates a tag with a task. Attaching an already-attached
// tag is a no-op.
func (r Repo) AttachTag(ctx context.Context, tx *sql.Tx, taskID, tagID int64) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags(task_id,tag_id) VALUES (?,?)`, taskID, tagID)
	return err
}

// DetachTag removes a tag association from a task.
func (r Repo) DetachTag(ctx context.Context, tx *sql.Tx, taskID, tagID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id=? AND tag_id=?`, taskID, tagID)
	return err
}

// ListTaskTags returns a task's tags ordered by value.
func (r Repo) ListTaskTags(ctx context.Context, taskID int64) ([]domain.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT g.id,g.value FROM tags g JOIN task_tags tt ON tt.tag_id=g.id WHERE tt.task_id=? ORDER BY g.value ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Value); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
