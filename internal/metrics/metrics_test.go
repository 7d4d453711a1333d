package metrics

import (
	"testing"
	"time"

	"timekeep/internal/ledger"
)

func day(d, h int) time.Time {
	return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC)
}

func TestWorkedTimeClipsToRange(t *testing.T) {
	intervals := []ledger.Interval{
		{TaskID: 1, Start: day(1, 9), End: day(1, 11)},  // fully inside
		{TaskID: 2, Start: day(1, 23), End: day(2, 1)},  // straddles the range end
		{TaskID: 3, Start: day(3, 9), End: day(3, 10)},  // outside
		{TaskID: 4, Start: day(1, 12)},                  // still open
	}
	worked, tasks := WorkedTime(intervals, day(1, 0), day(2, 0))
	if got := worked.Hours(); got != 3 {
		t.Fatalf("worked = %v hours, want 3", got)
	}
	if tasks != 2 {
		t.Fatalf("distinct tasks = %d, want 2", tasks)
	}
}

func TestDayBucketsKeepEmptyDays(t *testing.T) {
	intervals := []ledger.Interval{
		{TaskID: 1, Start: day(1, 9), End: day(1, 11)},
		{TaskID: 1, Start: day(3, 14), End: day(3, 15)},
	}
	buckets := DayBuckets(intervals, day(1, 0), day(4, 0))
	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(buckets))
	}
	hours := []float64{2, 0, 1}
	for i, b := range buckets {
		if b.Hours != hours[i] {
			t.Errorf("bucket %d = %v hours, want %v", i, b.Hours, hours[i])
		}
	}
}

func TestDayBucketsEmptyRange(t *testing.T) {
	if got := DayBuckets(nil, day(2, 0), day(1, 0)); got != nil {
		t.Fatalf("inverted range should yield no buckets, got %v", got)
	}
}
