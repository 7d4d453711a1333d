// Package lifecycle is the task status state machine. Apply validates an
// event against a task snapshot and returns a pure description of the
// change: the next status, the required ledger operation, and any
// actual-date effects. It performs no I/O and mutates nothing; the caller
// persists the whole change atomically or not at all.
package lifecycle

import (
	"fmt"

	"timekeep/internal/domain"
)

// Event is a requested status change.
type Event string

const (
	EventStart   Event = "start"
	EventPause   Event = "pause"
	EventResume  Event = "resume"
	EventFinish  Event = "finish"
	EventCancel  Event = "cancel"
	EventRestore Event = "restore"
	EventReopen  Event = "reopen"
)

// Events lists every lifecycle event.
func Events() []Event {
	return []Event{EventStart, EventPause, EventResume, EventFinish, EventCancel, EventRestore, EventReopen}
}

// ParseEvent validates an event name.
func ParseEvent(v string) (Event, error) {
	for _, ev := range Events() {
		if string(ev) == v {
			return ev, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle event %q", v)
}

// LedgerOp is the work-history side effect a transition requires.
type LedgerOp int

const (
	// LedgerNone leaves the work history untouched.
	LedgerNone LedgerOp = iota
	// LedgerOpen opens a new interval at the transition time.
	LedgerOpen
	// LedgerClose closes the open interval at the transition time.
	LedgerClose
	// LedgerCloseIfOpen closes the open interval if one exists.
	LedgerCloseIfOpen
)

// Snapshot is the minimal view of a task the state machine needs.
type Snapshot struct {
	TaskID          int64
	Status          domain.Status
	HasOpenInterval bool
	HasActualStart  bool
	ElapsedSeconds  int64
}

// Change describes the outcome of a legal transition.
type Change struct {
	Status              domain.Status
	Ledger              LedgerOp
	SetActualStart      bool
	ClearActualStart    bool
	SetActualComplete   bool
	ClearActualComplete bool
}

// TransitionError reports a (status, event) pair outside the transition
// table. Nothing is applied when it is returned.
type TransitionError struct {
	TaskID int64
	From   domain.Status
	Event  Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %d: cannot %s a task in status %q", e.TaskID, e.Event, e.From.Display())
}

// Apply validates ev against the snapshot and computes the change.
//
// The transition table:
//
//	Todo    start   -> Doing      open interval, set actual start once
//	Doing   pause   -> Paused     close interval
//	Paused  resume  -> Doing      open interval
//	Doing   finish  -> Done       close interval, set actual complete
//	Paused  finish  -> Done       set actual complete
//	Todo/Doing/Paused cancel -> Cancelled   close interval if open
//	Cancelled restore -> Paused or Todo (see below)
//	Done    reopen  -> Doing      clear actual complete, open interval
//
// A restore returns to Paused when the task had already accrued work
// (elapsed time and an actual start date); otherwise it returns to Todo
// and the actual start date is cleared. Finishing a task that was never
// started is rejected.
func Apply(s Snapshot, ev Event) (Change, error) {
	illegal := func() (Change, error) {
		return Change{}, &TransitionError{TaskID: s.TaskID, From: s.Status, Event: ev}
	}

	switch ev {
	case EventStart:
		if s.Status != domain.StatusTodo {
			return illegal()
		}
		return Change{
			Status:         domain.StatusDoing,
			Ledger:         LedgerOpen,
			SetActualStart: !s.HasActualStart,
		}, nil

	case EventPause:
		if s.Status != domain.StatusDoing {
			return illegal()
		}
		return Change{Status: domain.StatusPaused, Ledger: LedgerClose}, nil

	case EventResume:
		if s.Status != domain.StatusPaused {
			return illegal()
		}
		return Change{Status: domain.StatusDoing, Ledger: LedgerOpen}, nil

	case EventFinish:
		switch s.Status {
		case domain.StatusDoing:
			return Change{Status: domain.StatusDone, Ledger: LedgerClose, SetActualComplete: true}, nil
		case domain.StatusPaused:
			return Change{Status: domain.StatusDone, Ledger: LedgerNone, SetActualComplete: true}, nil
		}
		return illegal()

	case EventCancel:
		switch s.Status {
		case domain.StatusTodo, domain.StatusDoing, domain.StatusPaused:
			return Change{Status: domain.StatusCancelled, Ledger: LedgerCloseIfOpen}, nil
		}
		return illegal()

	case EventRestore:
		if s.Status != domain.StatusCancelled {
			return illegal()
		}
		if s.HasActualStart && s.ElapsedSeconds > 0 {
			return Change{Status: domain.StatusPaused}, nil
		}
		return Change{Status: domain.StatusTodo, ClearActualStart: true}, nil

	case EventReopen:
		if s.Status != domain.StatusDone {
			return illegal()
		}
		return Change{Status: domain.StatusDoing, Ledger: LedgerOpen, ClearActualComplete: true}, nil
	}
	return illegal()
}
