package timespan

import (
	"testing"
	"time"
)

func TestComponentsRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 59, 60, 61, 3599, 3600, 3661, 86399, 86400, 90061, 123456789}
	for _, secs := range cases {
		s := FromSeconds(secs)
		c := s.Components()
		if got := c.Total(); got != secs {
			t.Errorf("Components of %d recombine to %d", secs, got)
		}
	}
}

func TestFromHours(t *testing.T) {
	s := FromHours(1.5)
	if s.Seconds() != 5400 {
		t.Fatalf("1.5h = %d seconds, want 5400", s.Seconds())
	}
	c := s.Components()
	if c.Days != 0 || c.Hours != 1 || c.Minutes != 30 || c.Seconds != 0 {
		t.Fatalf("1.5h components = %+v", c)
	}
	if got := s.String(); got != "01h 30m 00s" {
		t.Fatalf("1.5h renders %q", got)
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "00s"},
		{6, "06s"},
		{306, "05m 06s"},
		{14706, "04h 05m 06s"},
		{273906, "3d 04h 05m 06s"},
		{-306, "-05m 06s"},
	}
	for _, tc := range cases {
		if got := FromSeconds(tc.secs).String(); got != tc.want {
			t.Errorf("FromSeconds(%d).String() = %q, want %q", tc.secs, got, tc.want)
		}
	}
}

func TestFromInterval(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s, err := FromInterval(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("FromInterval: %v", err)
	}
	if s.Seconds() != 5400 {
		t.Fatalf("90m interval = %d seconds", s.Seconds())
	}

	if _, err := FromInterval(start, start); err != ErrInvalidInterval {
		t.Fatalf("zero interval: got %v, want ErrInvalidInterval", err)
	}
	if _, err := FromInterval(start, start.Add(-time.Second)); err != ErrInvalidInterval {
		t.Fatalf("negative interval: got %v, want ErrInvalidInterval", err)
	}
}

func TestSumAndSign(t *testing.T) {
	total := Sum(FromSeconds(100), FromSeconds(-40), FromSeconds(-70))
	if total.Seconds() != -10 {
		t.Fatalf("sum = %d, want -10", total.Seconds())
	}
	if !total.Negative() {
		t.Fatal("sum should be negative")
	}
	if !FromSeconds(0).IsZero() {
		t.Fatal("zero span should report IsZero")
	}
	if FromSeconds(0).Negative() {
		t.Fatal("zero span must not be negative")
	}
	if got := FromSeconds(-10).Add(FromSeconds(10)); !got.IsZero() {
		t.Fatalf("(-10s)+(10s) = %d", got.Seconds())
	}
}
