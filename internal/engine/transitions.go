package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timekeep/internal/domain"
	"timekeep/internal/events"
	"timekeep/internal/ledger"
	"timekeep/internal/lifecycle"
)

// Transition validates ev against the task's current status, applies the
// required ledger operation and status/date effects in one transaction,
// and recomputes the elapsed total from the closed intervals. On any
// validation failure the task is untouched.
func (e Engine) Transition(ctx context.Context, taskID int64, ev lifecycle.Event) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	rows, err := e.Repo.ListWorkHistory(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	history, err := toHistory(rows)
	if err != nil {
		return domain.Task{}, err
	}
	_, hasOpen := history.OpenInterval()

	change, err := lifecycle.Apply(lifecycle.Snapshot{
		TaskID:          taskID,
		Status:          t.Status,
		HasOpenInterval: hasOpen,
		HasActualStart:  t.ActualStart != nil,
		ElapsedSeconds:  t.ElapsedDuration,
	}, ev)
	if err != nil {
		return domain.Task{}, err
	}

	now := e.now()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	history, err = e.applyLedgerOp(ctx, tx, history, taskID, change.Ledger, now)
	if err != nil {
		return domain.Task{}, err
	}

	from := t.Status
	t.Status = change.Status
	t.ElapsedDuration = history.TotalElapsed().Seconds()
	nowStr := fmtTime(now)
	if change.SetActualStart {
		t.ActualStart = &nowStr
	}
	if change.ClearActualStart {
		t.ActualStart = nil
	}
	if change.SetActualComplete {
		t.ActualComplete = &nowStr
	}
	if change.ClearActualComplete {
		t.ActualComplete = nil
	}
	t.UpdatedAt = nowStr
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.transitioned", "task", entityID(taskID), uuid.NewString(), events.EventPayload{
		"event": string(ev),
		"from":  from,
		"to":    t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, taskID)
}

func (e Engine) applyLedgerOp(ctx context.Context, tx *sql.Tx, history ledger.History, taskID int64, op lifecycle.LedgerOp, now time.Time) (ledger.History, error) {
	switch op {
	case lifecycle.LedgerNone:
		return history, nil
	case lifecycle.LedgerOpen:
		iv, err := history.OpenAt(taskID, now)
		if err != nil {
			return nil, err
		}
		id, err := e.Repo.InsertWorkInterval(ctx, tx, toRow(iv))
		if err != nil {
			return nil, err
		}
		iv.ID = id
		return append(history, iv), nil
	case lifecycle.LedgerCloseIfOpen:
		if _, ok := history.OpenInterval(); !ok {
			return history, nil
		}
		fallthrough
	case lifecycle.LedgerClose:
		iv, err := history.CloseAt(taskID, now)
		if err != nil {
			return nil, err
		}
		if err := e.Repo.UpdateWorkInterval(ctx, tx, toRow(iv)); err != nil {
			return nil, err
		}
		for i := range history {
			if history[i].ID == iv.ID {
				history[i] = iv
			}
		}
		return history, nil
	}
	return nil, fmt.Errorf("unknown ledger operation %d", op)
}

func (e Engine) StartTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventStart)
}

func (e Engine) PauseTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventPause)
}

func (e Engine) ResumeTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventResume)
}

func (e Engine) FinishTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventFinish)
}

func (e Engine) CancelTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventCancel)
}

func (e Engine) RestoreTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventRestore)
}

func (e Engine) ReopenTask(ctx context.Context, taskID int64) (domain.Task, error) {
	return e.Transition(ctx, taskID, lifecycle.EventReopen)
}

// AddWorkHistory records a manual correction interval. The interval must
// be closed and well-formed; the task's elapsed total is recomputed in
// the same transaction.
func (e Engine) AddWorkHistory(ctx context.Context, taskID int64, start, end time.Time) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	iv, err := ledger.Manual(taskID, start, end)
	if err != nil {
		return domain.Task{}, err
	}

	return e.mutateHistory(ctx, taskID, "work.added", func(tx *sql.Tx, history ledger.History) (ledger.History, events.EventPayload, error) {
		id, err := e.Repo.InsertWorkInterval(ctx, tx, toRow(iv))
		if err != nil {
			return nil, nil, err
		}
		iv.ID = id
		return append(history, iv), events.EventPayload{
			"interval_id": id,
			"start_date":  fmtTime(iv.Start),
			"end_date":    fmtTime(iv.End),
		}, nil
	})
}

// EditWorkHistory rewrites the bounds of an existing closed interval.
// Refused while the task is actively tracking.
func (e Engine) EditWorkHistory(ctx context.Context, taskID, intervalID int64, start, end time.Time) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}

	return e.mutateHistory(ctx, taskID, "work.edited", func(tx *sql.Tx, history ledger.History) (ledger.History, events.EventPayload, error) {
		iv, err := history.Edit(t.Status, intervalID, start, end)
		if err != nil {
			return nil, nil, err
		}
		if err := e.Repo.UpdateWorkInterval(ctx, tx, toRow(iv)); err != nil {
			return nil, nil, err
		}
		for i := range history {
			if history[i].ID == iv.ID {
				history[i] = iv
			}
		}
		return history, events.EventPayload{
			"interval_id": intervalID,
			"start_date":  fmtTime(iv.Start),
			"end_date":    fmtTime(iv.End),
		}, nil
	})
}

// DeleteWorkHistory removes one interval and recomputes the total.
// Legal in any status.
func (e Engine) DeleteWorkHistory(ctx context.Context, taskID, intervalID int64) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}

	return e.mutateHistory(ctx, taskID, "work.removed", func(tx *sql.Tx, history ledger.History) (ledger.History, events.EventPayload, error) {
		found := false
		next := history[:0]
		for _, iv := range history {
			if iv.ID == intervalID {
				found = true
				continue
			}
			next = append(next, iv)
		}
		if !found {
			return nil, nil, fmt.Errorf("interval %d: %w", intervalID, ledger.ErrIntervalNotFound)
		}
		if err := e.Repo.DeleteWorkInterval(ctx, tx, intervalID); err != nil {
			return nil, nil, err
		}
		return next, events.EventPayload{"interval_id": intervalID}, nil
	})
}

// mutateHistory wraps a work-history mutation: it runs fn inside a
// transaction, recomputes the elapsed total from the resulting closed
// intervals, and appends the change event before committing.
func (e Engine) mutateHistory(ctx context.Context, taskID int64, evtType string, fn func(*sql.Tx, ledger.History) (ledger.History, events.EventPayload, error)) (domain.Task, error) {
	rows, err := e.Repo.ListWorkHistory(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	history, err := toHistory(rows)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	history, payload, err := fn(tx, history)
	if err != nil {
		return domain.Task{}, err
	}
	t.ElapsedDuration = history.TotalElapsed().Seconds()
	t.UpdatedAt = fmtTime(e.now())
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, evtType, "task", entityID(taskID), uuid.NewString(), payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, taskID)
}
