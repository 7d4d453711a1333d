package search

import (
	"errors"
	"testing"

	"timekeep/internal/domain"
)

func TestNormalize(t *testing.T) {
	c, err := Normalize(2, 10, []domain.Status{domain.StatusTodo}, "  fix bug  ", nil, nil, nil, "scheduledCompleteDate", "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.Query == nil || *c.Query != "fix bug" {
		t.Fatalf("query = %v, want trimmed \"fix bug\"", c.Query)
	}
	if c.Ordering == nil || c.Ordering.Field != "scheduled_complete_date" {
		t.Fatalf("ordering = %+v", c.Ordering)
	}
	if c.Ordering.Direction != Ascending {
		t.Fatalf("missing direction should default to ascending, got %q", c.Ordering.Direction)
	}
}

func TestNormalizeBlankQueryBecomesNil(t *testing.T) {
	c, err := Normalize(1, 5, nil, "   ", nil, nil, nil, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Query != nil {
		t.Fatalf("blank query should normalize to nil, got %q", *c.Query)
	}
	if c.Ordering != nil {
		t.Fatalf("no sort field should leave ordering nil, got %+v", c.Ordering)
	}
}

func TestNormalizeRejectsBadPaging(t *testing.T) {
	if _, err := Normalize(0, 5, nil, "", nil, nil, nil, "", ""); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("page 0: got %v", err)
	}
	if _, err := Normalize(1, 0, nil, "", nil, nil, nil, "", ""); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("page size 0: got %v", err)
	}
}

func TestColumnName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"title", "title"},
		{"scheduledCompleteDate", "scheduled_complete_date"},
		{"actualStartDate", "actual_start_date"},
		{"elapsedDuration", "elapsed_duration"},
		{"HTTPStatus2xx", "http_status_2_xx"},
		{"ID", "id"},
		{"a1b", "a_1_b"},
	}
	for _, tc := range cases {
		if got := ColumnName(tc.in); got != tc.want {
			t.Errorf("ColumnName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestComputeLastPage(t *testing.T) {
	cases := []struct {
		total, pageSize, want int64
	}{
		{0, 5, 1},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{10, 5, 2},
		{11, 5, 3},
	}
	for _, tc := range cases {
		if got := ComputeLastPage(tc.total, tc.pageSize); got != tc.want {
			t.Errorf("ComputeLastPage(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}

func TestShouldStepBackAPage(t *testing.T) {
	// Deleting the sole record on page 2 of a 5-per-page listing.
	if !ShouldStepBackAPage(2, 6, 5) {
		t.Fatal("expected step back when deleting the last record of the final page")
	}
	// Page 1 never steps back.
	if ShouldStepBackAPage(1, 1, 5) {
		t.Fatal("page 1 must not step back")
	}
	// Page still holds records after the delete.
	if ShouldStepBackAPage(2, 7, 5) {
		t.Fatal("no step back while the page keeps records")
	}
}
