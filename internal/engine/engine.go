// Package engine orchestrates the core: it loads task snapshots, runs
// the pure lifecycle and ledger logic, and persists the computed change
// in a single transaction. Nothing is applied unless the store commits.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"timekeep/internal/config"
	"timekeep/internal/domain"
	"timekeep/internal/events"
	"timekeep/internal/ledger"
	"timekeep/internal/repo"
	"timekeep/internal/search"
	"timekeep/internal/timespan"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Settings *config.Settings
	Now      func() time.Time

	locks *taskLocks
}

func New(db *sql.DB, settings *config.Settings) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Settings: settings,
		Now:      time.Now,
		locks:    &taskLocks{m: map[int64]*sync.Mutex{}},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// taskLocks serializes mutations per task id. The "at most one open
// interval" and atomic-transition invariants do not survive interleaved
// writes to the same task; different tasks may proceed concurrently.
type taskLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (l *taskLocks) lock(id int64) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (e Engine) lockTask(id int64) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.lock(id)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// toHistory converts persisted interval rows into the ledger's in-memory
// form.
func toHistory(rows []domain.WorkInterval) (ledger.History, error) {
	h := make(ledger.History, 0, len(rows))
	for _, row := range rows {
		start, err := parseTime(row.Start)
		if err != nil {
			return nil, fmt.Errorf("interval %d: bad start date: %w", row.ID, err)
		}
		iv := ledger.Interval{ID: row.ID, TaskID: row.TaskID, Start: start}
		if row.End != nil {
			end, err := parseTime(*row.End)
			if err != nil {
				return nil, fmt.Errorf("interval %d: bad end date: %w", row.ID, err)
			}
			iv.End = end
		}
		h = append(h, iv)
	}
	return h, nil
}

func toRow(iv ledger.Interval) domain.WorkInterval {
	row := domain.WorkInterval{
		ID:     iv.ID,
		TaskID: iv.TaskID,
		Start:  fmtTime(iv.Start),
	}
	if !iv.Open() {
		end := fmtTime(iv.End)
		row.End = &end
		row.ElapsedDuration = iv.Elapsed().Seconds()
	}
	return row
}

// TaskCreateOptions are the parameters for a new task. Every task starts
// in Todo with no accrued time.
type TaskCreateOptions struct {
	Title             string
	Description       string
	ScheduledStart    *time.Time
	ScheduledComplete *time.Time
	EstimatedDuration *timespan.Span
	TagIDs            []int64
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	now := fmtTime(e.now())
	t := domain.Task{
		Title:             opts.Title,
		Description:       opts.Description,
		Status:            domain.StatusTodo,
		ScheduledStart:    fmtTimePtr(opts.ScheduledStart),
		ScheduledComplete: fmtTimePtr(opts.ScheduledComplete),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if opts.EstimatedDuration != nil {
		secs := opts.EstimatedDuration.Seconds()
		t.EstimatedDuration = &secs
	}
	for _, tagID := range opts.TagIDs {
		if _, err := e.Repo.GetTag(ctx, tagID); err != nil {
			return domain.Task{}, fmt.Errorf("tag %d: %w", tagID, err)
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	for _, tagID := range opts.TagIDs {
		if err := e.Repo.AttachTag(ctx, tx, id, tagID); err != nil {
			return domain.Task{}, fmt.Errorf("attach tag %d: %w", tagID, err)
		}
	}
	correlation := uuid.NewString()
	if err := e.Events.Append(ctx, tx, "task.created", "task", entityID(id), correlation, events.EventPayload{
		"title":  t.Title,
		"status": t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, id)
}

// GetTask returns a fully hydrated task. A task that is actively
// tracking reports its stored elapsed total plus the age of the open
// interval; the stored value itself stays the sum of closed intervals.
func (e Engine) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, err)
	}
	return e.hydrate(ctx, t)
}

func (e Engine) hydrate(ctx context.Context, t domain.Task) (domain.Task, error) {
	history, err := e.Repo.ListWorkHistory(ctx, t.ID)
	if err != nil {
		return domain.Task{}, err
	}
	t.WorkHistory = history
	if t.Tags, err = e.Repo.ListTaskTags(ctx, t.ID); err != nil {
		return domain.Task{}, err
	}
	if t.Comments, err = e.Repo.ListComments(ctx, t.ID); err != nil {
		return domain.Task{}, err
	}
	if t.Status == domain.StatusDoing {
		h, err := toHistory(history)
		if err != nil {
			return domain.Task{}, err
		}
		if open, ok := h.OpenInterval(); ok {
			if live, err := timespan.FromInterval(open.Start, e.now()); err == nil {
				t.ElapsedDuration += live.Seconds()
			}
		}
	}
	return t, nil
}

// SearchTasks runs a normalized criteria value against the store and
// hydrates the resulting page.
func (e Engine) SearchTasks(ctx context.Context, c search.Criteria) (domain.PagedData[domain.Task], error) {
	if c.Page < 1 {
		return domain.PagedData[domain.Task]{}, search.ErrInvalidPage
	}
	if c.PageSize < 1 {
		return domain.PagedData[domain.Task]{}, search.ErrInvalidPageSize
	}
	rows, total, err := e.Repo.SearchTasks(ctx, c)
	if err != nil {
		return domain.PagedData[domain.Task]{}, err
	}
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		t, err := e.hydrate(ctx, row)
		if err != nil {
			return domain.PagedData[domain.Task]{}, err
		}
		tasks = append(tasks, t)
	}
	return domain.PagedData[domain.Task]{
		Page:           c.Page,
		PageSize:       c.PageSize,
		TotalItemCount: total,
		Data:           tasks,
	}, nil
}

// TaskEditOptions rewrites a task's descriptive fields. Field edits are
// legal in any status. Elapsed is an explicit override: nil leaves the
// ledger-computed total untouched, a value replaces it knowingly --
// callers must not set it from a stale snapshot comparison.
type TaskEditOptions struct {
	ID                int64
	Title             string
	Description       string
	ScheduledStart    *time.Time
	ScheduledComplete *time.Time
	EstimatedDuration *timespan.Span
	Elapsed           *timespan.Span
}

func (e Engine) EditTask(ctx context.Context, opts TaskEditOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	unlock := e.lockTask(opts.ID)
	defer unlock()

	t, err := e.Repo.GetTask(ctx, opts.ID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", opts.ID, err)
	}
	t.Title = opts.Title
	t.Description = opts.Description
	t.ScheduledStart = fmtTimePtr(opts.ScheduledStart)
	t.ScheduledComplete = fmtTimePtr(opts.ScheduledComplete)
	if opts.EstimatedDuration != nil {
		secs := opts.EstimatedDuration.Seconds()
		t.EstimatedDuration = &secs
	} else {
		t.EstimatedDuration = nil
	}
	overridden := false
	if opts.Elapsed != nil {
		t.ElapsedDuration = opts.Elapsed.Seconds()
		overridden = true
	}
	t.UpdatedAt = fmtTime(e.now())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	correlation := uuid.NewString()
	if overridden {
		if err := e.Events.Append(ctx, tx, "task.elapsed_overridden", "task", entityID(t.ID), correlation, events.EventPayload{
			"elapsed_duration": t.ElapsedDuration,
		}); err != nil {
			return domain.Task{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.edited", "task", entityID(t.ID), correlation, events.EventPayload{
		"title": t.Title,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, opts.ID)
}

// DeleteTask removes a task and, through the schema, its work history,
// comments and tag associations.
func (e Engine) DeleteTask(ctx context.Context, id int64) error {
	unlock := e.lockTask(id)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, repo.ErrNotFound)
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", entityID(id), uuid.NewString(), nil); err != nil {
		return err
	}
	return tx.Commit()
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
