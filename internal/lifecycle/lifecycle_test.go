package lifecycle

import (
	"errors"
	"testing"

	"timekeep/internal/domain"
)

func TestLegalTransitions(t *testing.T) {
	cases := []struct {
		name       string
		snap       Snapshot
		event      Event
		wantStatus domain.Status
		wantLedger LedgerOp
	}{
		{"start from todo", Snapshot{Status: domain.StatusTodo}, EventStart, domain.StatusDoing, LedgerOpen},
		{"pause from doing", Snapshot{Status: domain.StatusDoing, HasOpenInterval: true}, EventPause, domain.StatusPaused, LedgerClose},
		{"resume from paused", Snapshot{Status: domain.StatusPaused}, EventResume, domain.StatusDoing, LedgerOpen},
		{"finish from doing", Snapshot{Status: domain.StatusDoing, HasOpenInterval: true}, EventFinish, domain.StatusDone, LedgerClose},
		{"finish from paused", Snapshot{Status: domain.StatusPaused}, EventFinish, domain.StatusDone, LedgerNone},
		{"cancel from todo", Snapshot{Status: domain.StatusTodo}, EventCancel, domain.StatusCancelled, LedgerCloseIfOpen},
		{"cancel from doing", Snapshot{Status: domain.StatusDoing, HasOpenInterval: true}, EventCancel, domain.StatusCancelled, LedgerCloseIfOpen},
		{"cancel from paused", Snapshot{Status: domain.StatusPaused}, EventCancel, domain.StatusCancelled, LedgerCloseIfOpen},
		{"reopen from done", Snapshot{Status: domain.StatusDone}, EventReopen, domain.StatusDoing, LedgerOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			change, err := Apply(tc.snap, tc.event)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if change.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", change.Status, tc.wantStatus)
			}
			if change.Ledger != tc.wantLedger {
				t.Errorf("ledger op = %d, want %d", change.Ledger, tc.wantLedger)
			}
		})
	}
}

func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		status domain.Status
		event  Event
	}{
		{domain.StatusTodo, EventPause},
		{domain.StatusTodo, EventResume},
		{domain.StatusTodo, EventFinish},
		{domain.StatusTodo, EventReopen},
		{domain.StatusDoing, EventStart},
		{domain.StatusDoing, EventResume},
		{domain.StatusDoing, EventRestore},
		{domain.StatusPaused, EventStart},
		{domain.StatusPaused, EventPause},
		{domain.StatusDone, EventStart},
		{domain.StatusDone, EventFinish},
		{domain.StatusDone, EventCancel},
		{domain.StatusDone, EventRestore},
		{domain.StatusCancelled, EventStart},
		{domain.StatusCancelled, EventFinish},
		{domain.StatusCancelled, EventCancel},
		{domain.StatusCancelled, EventReopen},
	}
	for _, tc := range cases {
		_, err := Apply(Snapshot{TaskID: 7, Status: tc.status}, tc.event)
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("%s from %s: got %v, want TransitionError", tc.event, tc.status, err)
			continue
		}
		if te.TaskID != 7 || te.From != tc.status || te.Event != tc.event {
			t.Errorf("TransitionError fields = %+v", te)
		}
	}
}

func TestStartSetsActualStartOnce(t *testing.T) {
	change, err := Apply(Snapshot{Status: domain.StatusTodo}, EventStart)
	if err != nil {
		t.Fatal(err)
	}
	if !change.SetActualStart {
		t.Fatal("first start should set the actual start date")
	}

	change, err = Apply(Snapshot{Status: domain.StatusTodo, HasActualStart: true}, EventStart)
	if err != nil {
		t.Fatal(err)
	}
	if change.SetActualStart {
		t.Fatal("start of a previously started task must not reset the actual start date")
	}
}

func TestFinishSetsActualComplete(t *testing.T) {
	change, err := Apply(Snapshot{Status: domain.StatusPaused}, EventFinish)
	if err != nil {
		t.Fatal(err)
	}
	if !change.SetActualComplete {
		t.Fatal("finish should set the actual completion date")
	}
}

func TestReopenClearsActualComplete(t *testing.T) {
	change, err := Apply(Snapshot{Status: domain.StatusDone}, EventReopen)
	if err != nil {
		t.Fatal(err)
	}
	if !change.ClearActualComplete {
		t.Fatal("reopen should clear the actual completion date")
	}
}

func TestRestoreDependsOnAccruedWork(t *testing.T) {
	// Cancelled mid-flight with accrued time: restore lands in Paused.
	change, err := Apply(Snapshot{Status: domain.StatusCancelled, HasActualStart: true, ElapsedSeconds: 120}, EventRestore)
	if err != nil {
		t.Fatal(err)
	}
	if change.Status != domain.StatusPaused {
		t.Fatalf("restore with accrued work = %q, want paused", change.Status)
	}
	if change.ClearActualStart {
		t.Fatal("restore to paused must keep the actual start date")
	}

	// Cancelled straight from Todo: restore lands back in Todo.
	change, err = Apply(Snapshot{Status: domain.StatusCancelled}, EventRestore)
	if err != nil {
		t.Fatal(err)
	}
	if change.Status != domain.StatusTodo {
		t.Fatalf("restore of untouched task = %q, want todo", change.Status)
	}
	if !change.ClearActualStart {
		t.Fatal("restore to todo should clear the actual start date")
	}

	// Started but no closed work yet: no accrued time, back to Todo.
	change, err = Apply(Snapshot{Status: domain.StatusCancelled, HasActualStart: true}, EventRestore)
	if err != nil {
		t.Fatal(err)
	}
	if change.Status != domain.StatusTodo {
		t.Fatalf("restore with zero elapsed = %q, want todo", change.Status)
	}
}

func TestParseEvent(t *testing.T) {
	for _, ev := range Events() {
		got, err := ParseEvent(string(ev))
		if err != nil || got != ev {
			t.Errorf("ParseEvent(%q) = %q, %v", ev, got, err)
		}
	}
	if _, err := ParseEvent("teleport"); err == nil {
		t.Fatal("unknown event should be rejected")
	}
}
