// Package timespan provides the immutable duration value used for all
// work-time accounting. A Span is a whole-second magnitude plus a sign,
// decomposable into days/hours/minutes/seconds without loss.
package timespan

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	secondsPerMinute int64 = 60
	secondsPerHour         = secondsPerMinute * 60
	secondsPerDay          = secondsPerHour * 24
)

// ErrInvalidInterval is returned when an interval's end does not come
// strictly after its start.
var ErrInvalidInterval = errors.New("invalid interval: end must be after start")

// Span is a signed duration in whole seconds. The zero value is zero seconds.
type Span struct {
	negative bool
	seconds  int64 // magnitude, always >= 0
}

// FromSeconds builds a Span from a signed second count.
func FromSeconds(n int64) Span {
	if n < 0 {
		return Span{negative: true, seconds: -n}
	}
	return Span{seconds: n}
}

// FromHours builds a Span from fractional hours, rounded half away from
// zero to the nearest second. User-entered estimates like 1.5h become
// exact integer seconds.
func FromHours(h float64) Span {
	return FromSeconds(int64(math.Round(h * float64(secondsPerHour))))
}

// FromInterval builds a Span from a closed interval. The end must come
// strictly after the start; zero and negative intervals are rejected.
func FromInterval(start, end time.Time) (Span, error) {
	if !end.After(start) {
		return Span{}, ErrInvalidInterval
	}
	return FromSeconds(int64(end.Sub(start) / time.Second)), nil
}

// Sum adds any number of spans by total seconds.
func Sum(spans ...Span) Span {
	var total int64
	for _, s := range spans {
		total += s.Seconds()
	}
	return FromSeconds(total)
}

// Add returns the sum of this span and the given spans.
func (s Span) Add(spans ...Span) Span {
	return Sum(append([]Span{s}, spans...)...)
}

// Seconds returns the signed total second count.
func (s Span) Seconds() int64 {
	if s.negative {
		return -s.seconds
	}
	return s.seconds
}

// Hours returns the signed span as fractional hours.
func (s Span) Hours() float64 {
	return float64(s.Seconds()) / float64(secondsPerHour)
}

// Negative reports whether the span is below zero.
func (s Span) Negative() bool {
	return s.negative && s.seconds != 0
}

// IsZero reports whether the span is exactly zero seconds.
func (s Span) IsZero() bool {
	return s.seconds == 0
}

// Components is the canonical day/hour/minute/second decomposition of a
// span's magnitude.
type Components struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Total recombines the components into total seconds.
func (c Components) Total() int64 {
	return c.Days*secondsPerDay + c.Hours*secondsPerHour + c.Minutes*secondsPerMinute + c.Seconds
}

// Components decomposes the magnitude by integer division, largest unit
// first. Recombining the result always reproduces the magnitude exactly.
func (s Span) Components() Components {
	rem := s.seconds
	var c Components
	c.Days = rem / secondsPerDay
	rem %= secondsPerDay
	c.Hours = rem / secondsPerHour
	rem %= secondsPerHour
	c.Minutes = rem / secondsPerMinute
	c.Seconds = rem % secondsPerMinute
	return c
}

// String renders the span largest-unit-first, omitting leading zero
// units: "3d 04h 05m 06s", "04h 05m 06s", "05m 06s" or "06s". Negative
// spans carry a leading minus.
func (s Span) String() string {
	c := s.Components()
	var out string
	switch {
	case c.Days > 0:
		out = fmt.Sprintf("%dd %02dh %02dm %02ds", c.Days, c.Hours, c.Minutes, c.Seconds)
	case c.Hours > 0:
		out = fmt.Sprintf("%02dh %02dm %02ds", c.Hours, c.Minutes, c.Seconds)
	case c.Minutes > 0:
		out = fmt.Sprintf("%02dm %02ds", c.Minutes, c.Seconds)
	default:
		out = fmt.Sprintf("%02ds", c.Seconds)
	}
	if s.Negative() {
		return "-" + out
	}
	return out
}
