// Package domain holds the persisted record shapes shared by the repo,
// engine and API layers. Timestamps travel as RFC 3339 strings and
// durations as integer seconds; richer in-memory types live in the core
// packages and are converted at the boundary.
package domain

import "fmt"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo      Status = "todo"
	StatusDoing     Status = "doing"
	StatusPaused    Status = "paused"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusDoing, StatusPaused, StatusDone, StatusCancelled}
}

// Valid reports whether s is one of the five lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusPaused, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Display returns the user-facing label for the status.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusDoing:
		return "Doing"
	case StatusPaused:
		return "Paused"
	case StatusDone:
		return "Done"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// ParseStatus accepts either the canonical form ("todo") or the display
// form ("To Do").
func ParseStatus(v string) (Status, error) {
	switch v {
	case "todo", "To Do":
		return StatusTodo, nil
	case "doing", "Doing":
		return StatusDoing, nil
	case "paused", "Paused":
		return StatusPaused, nil
	case "done", "Done":
		return StatusDone, nil
	case "cancelled", "Cancelled":
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// Task is the unit of trackable work. ElapsedDuration is the sum in
// seconds of all closed work intervals, recomputed after every ledger
// mutation.
type Task struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Status            Status         `json:"status" enum:"todo,doing,paused,done,cancelled"`
	ScheduledStart    *string        `json:"scheduled_start_date,omitempty" format:"date-time"`
	ScheduledComplete *string        `json:"scheduled_complete_date,omitempty" format:"date-time"`
	ActualStart       *string        `json:"actual_start_date,omitempty" format:"date-time"`
	ActualComplete    *string        `json:"actual_complete_date,omitempty" format:"date-time"`
	EstimatedDuration *int64         `json:"estimated_duration,omitempty"`
	ElapsedDuration   int64          `json:"elapsed_duration"`
	WorkHistory       []WorkInterval `json:"work_history,omitempty"`
	Tags              []Tag          `json:"tags,omitempty"`
	Comments          []Comment      `json:"comments,omitempty"`
	CreatedAt         string         `json:"created_at" format:"date-time"`
	UpdatedAt         string         `json:"updated_at" format:"date-time"`
}

// WorkInterval is one contiguous period of active work on a task. End is
// nil while the interval is still open; ElapsedDuration is zero until the
// interval closes.
type WorkInterval struct {
	ID              int64   `json:"id"`
	TaskID          int64   `json:"task_id"`
	Start           string  `json:"start_date" format:"date-time"`
	End             *string `json:"end_date,omitempty" format:"date-time"`
	ElapsedDuration int64   `json:"elapsed_duration"`
}

// Closed reports whether the interval has an end time.
func (w WorkInterval) Closed() bool { return w.End != nil }

// Tag is a shared label; many tasks may reference the same row.
type Tag struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// Comment is a free-text note attached to a task.
type Comment struct {
	ID       int64   `json:"id"`
	TaskID   int64   `json:"task_id"`
	Message  string  `json:"message"`
	Created  string  `json:"created" format:"date-time"`
	Modified *string `json:"modified,omitempty" format:"date-time"`
}

// PagedData wraps one page of a listing with its total count.
type PagedData[T any] struct {
	Page           int64 `json:"page"`
	PageSize       int64 `json:"page_size"`
	TotalItemCount int64 `json:"total_item_count"`
	Data           []T   `json:"data"`
}

// Event is one row of the append-only change log.
type Event struct {
	ID            int64  `json:"id"`
	TS            string `json:"ts" format:"date-time"`
	Type          string `json:"type"`
	EntityKind    string `json:"entity_kind"`
	EntityID      string `json:"entity_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Payload       string `json:"payload_json"`
}

// APIKey authenticates a client of the HTTP API.
type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
