// Package metrics computes statistical summaries over work history:
// how much time was worked in a period and how it spreads across days.
// Everything here is pure; the engine supplies the interval rows.
package metrics

import (
	"time"

	"timekeep/internal/ledger"
	"timekeep/internal/timespan"
)

// Bucket is the worked time falling inside one day.
type Bucket struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Hours float64   `json:"hours"`
}

// Summary aggregates a reporting period.
type Summary struct {
	TasksStarted   int64   `json:"tasks_started"`
	TasksCompleted int64   `json:"tasks_completed"`
	TasksWorked    int64   `json:"tasks_worked"`
	HoursWorked    float64 `json:"hours_worked"`
}

// clip returns the portion of iv overlapping [from, to), or false when
// they do not overlap. Open intervals are excluded; a live session only
// counts once it closes.
func clip(iv ledger.Interval, from, to time.Time) (timespan.Span, bool) {
	if iv.Open() {
		return timespan.Span{}, false
	}
	start := iv.Start
	if start.Before(from) {
		start = from
	}
	end := iv.End
	if end.After(to) {
		end = to
	}
	span, err := timespan.FromInterval(start, end)
	if err != nil {
		return timespan.Span{}, false
	}
	return span, true
}

// WorkedTime sums the portions of the intervals falling inside
// [from, to) and counts the distinct tasks contributing to it.
func WorkedTime(intervals []ledger.Interval, from, to time.Time) (timespan.Span, int64) {
	seen := map[int64]bool{}
	var total timespan.Span
	for _, iv := range intervals {
		span, ok := clip(iv, from, to)
		if !ok {
			continue
		}
		total = total.Add(span)
		seen[iv.TaskID] = true
	}
	return total, int64(len(seen))
}

// DayBuckets splits the worked time inside [from, to) into one bucket
// per calendar day of the caller's location. Days without work still get
// a zero bucket so charts keep a continuous axis.
func DayBuckets(intervals []ledger.Interval, from, to time.Time) []Bucket {
	if !to.After(from) {
		return nil
	}
	loc := from.Location()
	dayStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	var buckets []Bucket
	for dayStart.Before(to) {
		dayEnd := dayStart.AddDate(0, 0, 1)
		lo, hi := dayStart, dayEnd
		if lo.Before(from) {
			lo = from
		}
		if hi.After(to) {
			hi = to
		}
		worked, _ := WorkedTime(intervals, lo, hi)
		buckets = append(buckets, Bucket{Start: lo, End: hi, Hours: worked.Hours()})
		dayStart = dayEnd
	}
	return buckets
}
