// Package ledger reconciles a task's work history: the ordered set of
// start/end intervals and the total elapsed duration they add up to. All
// operations validate against an in-memory snapshot and return the
// resulting interval; persistence belongs to the caller.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"timekeep/internal/domain"
	"timekeep/internal/timespan"
)

var (
	// ErrAlreadyActive is returned when a second interval would be
	// opened while one is still open.
	ErrAlreadyActive = errors.New("an open work interval already exists")
	// ErrNoOpenInterval is returned when a close is requested with no
	// open interval.
	ErrNoOpenInterval = errors.New("no open work interval")
	// ErrLockedWhileActive is returned when an interval is edited while
	// the task is actively tracking.
	ErrLockedWhileActive = errors.New("work history is locked while the task is active")
	// ErrIntervalNotFound is returned when the named interval is not in
	// the task's history.
	ErrIntervalNotFound = errors.New("work interval not found")
)

// Interval is one work period. End is the zero time while the interval
// is open.
type Interval struct {
	ID     int64
	TaskID int64
	Start  time.Time
	End    time.Time
}

// Open reports whether the interval has no end yet.
func (iv Interval) Open() bool { return iv.End.IsZero() }

// Elapsed is the interval's contribution to the task total: its span
// when closed, zero while open.
func (iv Interval) Elapsed() timespan.Span {
	if iv.Open() {
		return timespan.Span{}
	}
	span, err := timespan.FromInterval(iv.Start, iv.End)
	if err != nil {
		return timespan.Span{}
	}
	return span
}

// History is all intervals belonging to one task.
type History []Interval

// OpenInterval returns the task's open interval, if any. At most one may
// exist at a time.
func (h History) OpenInterval() (Interval, bool) {
	for _, iv := range h {
		if iv.Open() {
			return iv, true
		}
	}
	return Interval{}, false
}

// TotalElapsed sums the elapsed durations of all closed intervals. Open
// intervals contribute nothing until they close. This is the
// authoritative value for a task's elapsed duration; a value tracked
// elsewhere never wins over a fresh recomputation.
func (h History) TotalElapsed() timespan.Span {
	spans := make([]timespan.Span, 0, len(h))
	for _, iv := range h {
		spans = append(spans, iv.Elapsed())
	}
	return timespan.Sum(spans...)
}

// OpenAt starts a new interval at now. Fails with ErrAlreadyActive when
// an open interval exists.
func (h History) OpenAt(taskID int64, now time.Time) (Interval, error) {
	if _, ok := h.OpenInterval(); ok {
		return Interval{}, fmt.Errorf("task %d: %w", taskID, ErrAlreadyActive)
	}
	return Interval{TaskID: taskID, Start: now}, nil
}

// CloseAt ends the open interval at now and returns it closed. Fails
// with ErrNoOpenInterval when none exists and with ErrInvalidInterval
// when now does not come strictly after the interval's start; the caller
// must reject the transition rather than clamp.
func (h History) CloseAt(taskID int64, now time.Time) (Interval, error) {
	open, ok := h.OpenInterval()
	if !ok {
		return Interval{}, fmt.Errorf("task %d: %w", taskID, ErrNoOpenInterval)
	}
	if _, err := timespan.FromInterval(open.Start, now); err != nil {
		return Interval{}, fmt.Errorf("task %d: close interval at %s: %w", taskID, now.Format(time.RFC3339), err)
	}
	open.End = now
	return open, nil
}

// Manual validates a user-entered correction interval. The task may be
// in any status.
func Manual(taskID int64, start, end time.Time) (Interval, error) {
	if _, err := timespan.FromInterval(start, end); err != nil {
		return Interval{}, fmt.Errorf("task %d: %w", taskID, err)
	}
	return Interval{TaskID: taskID, Start: start, End: end}, nil
}

// Edit revalidates an existing interval with new bounds. Editing is
// refused while the task is active, since live tracking is still
// extending an open interval.
func (h History) Edit(status domain.Status, intervalID int64, start, end time.Time) (Interval, error) {
	for _, iv := range h {
		if iv.ID != intervalID {
			continue
		}
		if status == domain.StatusDoing {
			return Interval{}, fmt.Errorf("interval %d: %w", intervalID, ErrLockedWhileActive)
		}
		if _, err := timespan.FromInterval(start, end); err != nil {
			return Interval{}, fmt.Errorf("interval %d: %w", intervalID, err)
		}
		iv.Start = start
		iv.End = end
		return iv, nil
	}
	return Interval{}, fmt.Errorf("interval %d: %w", intervalID, ErrIntervalNotFound)
}
