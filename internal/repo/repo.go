// Package repo is the SQLite persistence layer. It deals only in the
// wire-level domain records; the engine converts to and from the core's
// in-memory types.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"timekeep/internal/domain"
	"timekeep/internal/search"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id,title,description,status,scheduled_start_date,scheduled_complete_date,actual_start_date,actual_complete_date,estimated_duration,elapsed_duration,created_at,updated_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var schedStart, schedComplete, actualStart, actualComplete sql.NullString
	var estimated sql.NullInt64
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status,
		&schedStart, &schedComplete, &actualStart, &actualComplete,
		&estimated, &t.ElapsedDuration, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.ScheduledStart = optional(schedStart)
	t.ScheduledComplete = optional(schedComplete)
	t.ActualStart = optional(actualStart)
	t.ActualComplete = optional(actualComplete)
	if estimated.Valid {
		t.EstimatedDuration = &estimated.Int64
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(title,description,status,scheduled_start_date,scheduled_complete_date,actual_start_date,actual_complete_date,estimated_duration,elapsed_duration,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, t.Description, t.Status,
		nullableptr(t.ScheduledStart), nullableptr(t.ScheduledComplete),
		nullableptr(t.ActualStart), nullableptr(t.ActualComplete),
		nullableInt(t.EstimatedDuration), t.ElapsedDuration, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

// UpdateTask persists all mutable task fields inside the caller's tx.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?,description=?,status=?,scheduled_start_date=?,scheduled_complete_date=?,actual_start_date=?,actual_complete_date=?,estimated_duration=?,elapsed_duration=?,updated_at=? WHERE id=?`,
		t.Title, t.Description, t.Status,
		nullableptr(t.ScheduledStart), nullableptr(t.ScheduledComplete),
		nullableptr(t.ActualStart), nullableptr(t.ActualComplete),
		nullableInt(t.EstimatedDuration), t.ElapsedDuration, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// sortColumns is the allow-list of task columns a listing may order by.
var sortColumns = map[string]bool{
	"id":                      true,
	"title":                   true,
	"description":             true,
	"status":                  true,
	"scheduled_start_date":    true,
	"scheduled_complete_date": true,
	"actual_start_date":       true,
	"actual_complete_date":    true,
	"estimated_duration":      true,
	"elapsed_duration":        true,
	"created_at":              true,
	"updated_at":              true,
}

// SearchTasks runs the normalized criteria against the store and returns
// one page of base task rows plus the total match count. Work history,
// tags and comments are hydrated separately.
func (r Repo) SearchTasks(ctx context.Context, c search.Criteria) ([]domain.Task, int64, error) {
	where, args := buildTaskFilter(c)

	var total int64
	countQuery := `SELECT COUNT(*) FROM tasks` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	orderBy := "scheduled_complete_date"
	dir := "ASC"
	if c.Ordering != nil {
		if !sortColumns[c.Ordering.Field] {
			return nil, 0, fmt.Errorf("cannot sort by %q", c.Ordering.Field)
		}
		orderBy = c.Ordering.Field
		if c.Ordering.Direction == search.Descending {
			dir = "DESC"
		}
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where +
		fmt.Sprintf(` ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`, orderBy, dir)
	args = append(args, c.PageSize, (c.Page-1)*c.PageSize)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func buildTaskFilter(c search.Criteria) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(c.Statuses) > 0 {
		marks := make([]string, len(c.Statuses))
		for i, s := range c.Statuses {
			marks[i] = "?"
			args = append(args, s)
		}
		clauses = append(clauses, `status IN (`+strings.Join(marks, ",")+`)`)
	}
	if c.Query != nil {
		like := "%" + escapeLike(*c.Query) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if len(c.Tags) > 0 {
		marks := make([]string, len(c.Tags))
		for i, v := range c.Tags {
			marks[i] = "?"
			args = append(args, v)
		}
		clauses = append(clauses, `EXISTS (SELECT 1 FROM task_tags tt JOIN tags g ON g.id=tt.tag_id WHERE tt.task_id=tasks.id AND g.value IN (`+strings.Join(marks, ",")+`))`)
	}
	if clause, rangeArgs := dateRangeClause("scheduled_start_date", c.StartBy); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, rangeArgs...)
	}
	if clause, rangeArgs := dateRangeClause("scheduled_complete_date", c.DueBy); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, rangeArgs...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, " AND "), args
}

// dateRangeClause relies on RFC 3339 UTC timestamps sorting
// lexicographically.
func dateRangeClause(column string, r *search.DateRange) (string, []any) {
	if r == nil {
		return "", nil
	}
	var (
		parts []string
		args  []any
	)
	if r.Start != nil {
		parts = append(parts, column+` >= ?`)
		args = append(args, r.Start.UTC().Format(time.RFC3339))
	}
	if r.End != nil {
		parts = append(parts, column+` <= ?`)
		args = append(args, r.End.UTC().Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return `(` + column + ` IS NOT NULL AND ` + strings.Join(parts, " AND ") + `)`, args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func optional(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableptr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
