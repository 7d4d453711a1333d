package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timekeep/internal/domain"
	"timekeep/internal/events"
	"timekeep/internal/ledger"
	"timekeep/internal/metrics"
	"timekeep/internal/repo"
)

// CreateTag registers a new shared label. Values are trimmed and must be
// unique.
func (e Engine) CreateTag(ctx context.Context, value string) (domain.Tag, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Tag{}, fmt.Errorf("tag value is required")
	}
	return e.Repo.InsertTag(ctx, value)
}

func (e Engine) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return e.Repo.ListTags(ctx)
}

// DeleteTag removes the label everywhere; associations cascade.
func (e Engine) DeleteTag(ctx context.Context, id int64) error {
	return e.Repo.DeleteTag(ctx, id)
}

// TagTask attaches an existing tag to a task. Attaching twice is a no-op.
func (e Engine) TagTask(ctx context.Context, taskID, tagID int64) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	tag, err := e.Repo.GetTag(ctx, tagID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("tag %d: %w", tagID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.AttachTag(ctx, tx, taskID, tagID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "tag.attached", "task", entityID(taskID), uuid.NewString(), events.EventPayload{
		"tag_id": tagID,
		"value":  tag.Value,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, taskID)
}

// UntagTask detaches a tag from a task. The tag row itself survives.
func (e Engine) UntagTask(ctx context.Context, taskID, tagID int64) (domain.Task, error) {
	unlock := e.lockTask(taskID)
	defer unlock()

	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.DetachTag(ctx, tx, taskID, tagID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "tag.detached", "task", entityID(taskID), uuid.NewString(), events.EventPayload{
		"tag_id": tagID,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.GetTask(ctx, taskID)
}

// AddComment appends a note to a task.
func (e Engine) AddComment(ctx context.Context, taskID int64, message string) (domain.Comment, error) {
	if strings.TrimSpace(message) == "" {
		return domain.Comment{}, fmt.Errorf("comment message is required")
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Comment{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	c := domain.Comment{
		TaskID:  taskID,
		Message: message,
		Created: fmtTime(e.now()),
	}
	id, err := e.Repo.InsertComment(ctx, c)
	if err != nil {
		return domain.Comment{}, err
	}
	return e.Repo.GetComment(ctx, id)
}

// EditComment rewrites a note's message and stamps its modified time.
func (e Engine) EditComment(ctx context.Context, id int64, message string) (domain.Comment, error) {
	if strings.TrimSpace(message) == "" {
		return domain.Comment{}, fmt.Errorf("comment message is required")
	}
	c, err := e.Repo.GetComment(ctx, id)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("comment %d: %w", id, err)
	}
	c.Message = message
	modified := fmtTime(e.now())
	c.Modified = &modified
	if err := e.Repo.UpdateComment(ctx, c); err != nil {
		return domain.Comment{}, err
	}
	return e.Repo.GetComment(ctx, id)
}

func (e Engine) DeleteComment(ctx context.Context, id int64) error {
	return e.Repo.DeleteComment(ctx, id)
}

// MetricsReport is a worked-time summary over a date range, with one
// bucket per calendar day.
type MetricsReport struct {
	Start   string           `json:"start" format:"date-time"`
	End     string           `json:"end" format:"date-time"`
	Summary metrics.Summary  `json:"summary"`
	Buckets []metrics.Bucket `json:"buckets"`
}

// Metrics computes a worked-time report between start and end,
// optionally restricted to tasks carrying one of the tag values. Open
// intervals are excluded; intervals straddling the range boundaries are
// clipped to it.
func (e Engine) Metrics(ctx context.Context, start, end time.Time, tagValues []string) (MetricsReport, error) {
	if !end.After(start) {
		return MetricsReport{}, fmt.Errorf("metrics range: end must come after start")
	}
	rows, err := e.Repo.ListWorkHistoryBetween(ctx, fmtTime(start), fmtTime(end), tagValues)
	if err != nil {
		return MetricsReport{}, err
	}
	intervals := make([]ledger.Interval, 0, len(rows))
	for _, row := range rows {
		if row.End == nil {
			continue
		}
		s, err := parseTime(row.Start)
		if err != nil {
			return MetricsReport{}, fmt.Errorf("interval %d: bad start date: %w", row.ID, err)
		}
		ivEnd, err := parseTime(*row.End)
		if err != nil {
			return MetricsReport{}, fmt.Errorf("interval %d: bad end date: %w", row.ID, err)
		}
		intervals = append(intervals, ledger.Interval{ID: row.ID, TaskID: row.TaskID, Start: s, End: ivEnd})
	}

	worked, tasksWorked := metrics.WorkedTime(intervals, start, end)
	started, err := e.Repo.CountTasksStartedBetween(ctx, fmtTime(start), fmtTime(end))
	if err != nil {
		return MetricsReport{}, err
	}
	completed, err := e.Repo.CountTasksCompletedBetween(ctx, fmtTime(start), fmtTime(end))
	if err != nil {
		return MetricsReport{}, err
	}
	return MetricsReport{
		Start: fmtTime(start),
		End:   fmtTime(end),
		Summary: metrics.Summary{
			TasksStarted:   started,
			TasksCompleted: completed,
			TasksWorked:    tasksWorked,
			HoursWorked:    worked.Hours(),
		},
		Buckets: metrics.DayBuckets(intervals, start, end),
	}, nil
}

// RecentEvents returns the newest rows of the change log.
func (e Engine) RecentEvents(ctx context.Context, limit int64) ([]domain.Event, error) {
	return e.Repo.ListEvents(ctx, limit)
}

// CreateAPIKey mints a new key, returning the secret exactly once. Only
// its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, name string) (domain.APIKey, string, error) {
	secret := uuid.NewString()
	key := domain.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: fmtTime(e.now()),
	}
	if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

func (e Engine) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	return e.Repo.ListAPIKeys(ctx)
}

func (e Engine) DeleteAPIKey(ctx context.Context, id string) error {
	return e.Repo.DeleteAPIKey(ctx, id)
}
