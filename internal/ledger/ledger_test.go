package ledger

import (
	"errors"
	"testing"
	"time"

	"timekeep/internal/domain"
	"timekeep/internal/timespan"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func closed(id int64, start, end time.Time) Interval {
	return Interval{ID: id, TaskID: 1, Start: start, End: end}
}

func TestTotalElapsedIgnoresOpenInterval(t *testing.T) {
	h := History{
		closed(1, base, base.Add(time.Hour)),
		closed(2, base.Add(2*time.Hour), base.Add(2*time.Hour+30*time.Minute)),
		{ID: 3, TaskID: 1, Start: base.Add(3 * time.Hour)}, // still open
	}
	if got := h.TotalElapsed().Seconds(); got != 5400 {
		t.Fatalf("total = %d, want 5400", got)
	}
}

func TestOpenAtRejectsSecondOpenInterval(t *testing.T) {
	h := History{{ID: 1, TaskID: 1, Start: base}}
	_, err := h.OpenAt(1, base.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("got %v, want ErrAlreadyActive", err)
	}
}

func TestCloseAt(t *testing.T) {
	h := History{{ID: 1, TaskID: 1, Start: base}}
	iv, err := h.CloseAt(1, base.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("CloseAt: %v", err)
	}
	if iv.Open() {
		t.Fatal("interval should be closed")
	}
	if got := iv.Elapsed().Seconds(); got != 2700 {
		t.Fatalf("elapsed = %d, want 2700", got)
	}
}

func TestCloseAtWithoutOpenInterval(t *testing.T) {
	h := History{closed(1, base, base.Add(time.Hour))}
	_, err := h.CloseAt(1, base.Add(2*time.Hour))
	if !errors.Is(err, ErrNoOpenInterval) {
		t.Fatalf("got %v, want ErrNoOpenInterval", err)
	}
}

func TestCloseAtRejectsNonPositiveSpan(t *testing.T) {
	h := History{{ID: 1, TaskID: 1, Start: base}}
	// close at exactly the start
	if _, err := h.CloseAt(1, base); !errors.Is(err, timespan.ErrInvalidInterval) {
		t.Fatalf("close at start: got %v, want ErrInvalidInterval", err)
	}
	// clock ran backwards
	if _, err := h.CloseAt(1, base.Add(-time.Minute)); !errors.Is(err, timespan.ErrInvalidInterval) {
		t.Fatalf("close before start: got %v, want ErrInvalidInterval", err)
	}
	// nothing was mutated; a later valid close still works
	if _, err := h.CloseAt(1, base.Add(time.Minute)); err != nil {
		t.Fatalf("close after rejection: %v", err)
	}
}

func TestManual(t *testing.T) {
	iv, err := Manual(1, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if got := iv.Elapsed().Seconds(); got != 3600 {
		t.Fatalf("elapsed = %d, want 3600", got)
	}
	if _, err := Manual(1, base.Add(100*time.Second), base.Add(50*time.Second)); !errors.Is(err, timespan.ErrInvalidInterval) {
		t.Fatalf("inverted interval: got %v, want ErrInvalidInterval", err)
	}
}

func TestEditLockedWhileActive(t *testing.T) {
	h := History{closed(1, base, base.Add(time.Hour))}
	_, err := h.Edit(domain.StatusDoing, 1, base, base.Add(2*time.Hour))
	if !errors.Is(err, ErrLockedWhileActive) {
		t.Fatalf("got %v, want ErrLockedWhileActive", err)
	}

	// a missing interval reports not-found regardless of status
	if _, err := h.Edit(domain.StatusDoing, 99, base, base.Add(time.Hour)); !errors.Is(err, ErrIntervalNotFound) {
		t.Fatalf("missing interval on active task: got %v, want ErrIntervalNotFound", err)
	}
}

func TestEdit(t *testing.T) {
	h := History{closed(1, base, base.Add(time.Hour))}
	iv, err := h.Edit(domain.StatusPaused, 1, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got := iv.Elapsed().Seconds(); got != 7200 {
		t.Fatalf("elapsed = %d, want 7200", got)
	}
	if _, err := h.Edit(domain.StatusPaused, 99, base, base.Add(time.Hour)); !errors.Is(err, ErrIntervalNotFound) {
		t.Fatalf("missing interval: got %v, want ErrIntervalNotFound", err)
	}
	if _, err := h.Edit(domain.StatusPaused, 1, base.Add(time.Hour), base); !errors.Is(err, timespan.ErrInvalidInterval) {
		t.Fatalf("inverted bounds: got %v, want ErrInvalidInterval", err)
	}
}
