// Package search normalizes UI-facing filter state into a canonical,
// store-agnostic criteria value, and computes the pagination fallbacks
// needed when a mutation empties the current page.
package search

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"timekeep/internal/domain"
)

// Direction orders a sort field.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Ordering names the store column and direction for a sorted listing.
type Ordering struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction" enum:"asc,desc"`
}

// DateRange bounds a timestamp column. Either side may be open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Criteria is the normalized description of a filtered, paginated,
// sorted task listing. Nil filter fields mean unfiltered; the core never
// invents defaults beyond what Normalize documents.
type Criteria struct {
	Page     int64           `json:"page"`
	PageSize int64           `json:"page_size"`
	Query    *string         `json:"query_string,omitempty"`
	Statuses []domain.Status `json:"statuses,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	StartBy  *DateRange      `json:"start_by_filter,omitempty"`
	DueBy    *DateRange      `json:"due_by_filter,omitempty"`
	Ordering *Ordering       `json:"ordering,omitempty"`
}

var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("page size must be > 0")
)

// Normalize canonicalizes raw filter state. Blank free text becomes nil,
// the sort property name is translated to the store's column naming, and
// a missing sort direction defaults to ascending.
func Normalize(page, pageSize int64, statuses []domain.Status, query string, tags []string, startBy, dueBy *DateRange, sortField, sortDirection string) (Criteria, error) {
	if page < 1 {
		return Criteria{}, ErrInvalidPage
	}
	if pageSize < 1 {
		return Criteria{}, ErrInvalidPageSize
	}
	c := Criteria{
		Page:     page,
		PageSize: pageSize,
		Statuses: statuses,
		Tags:     tags,
		StartBy:  startBy,
		DueBy:    dueBy,
	}
	if q := strings.TrimSpace(query); q != "" {
		c.Query = &q
	}
	if sortField != "" {
		dir := Ascending
		if sortDirection == string(Descending) {
			dir = Descending
		}
		c.Ordering = &Ordering{Field: ColumnName(sortField), Direction: dir}
	}
	return c, nil
}

// ColumnName translates a display property name to the store's column
// naming convention: words are split at uppercase-letter boundaries and
// digit runs, lowercased, and joined with underscores. An uppercase run
// is one word unless followed by a lowercase letter, in which case its
// last letter starts the next word ("scheduledCompleteDate" ->
// "scheduled_complete_date", "HTTPStatus2xx" -> "http_status_2_xx").
func ColumnName(property string) string {
	runes := []rune(property)
	var words []string
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			words = append(words, string(runes[i:j]))
			i = j
		case unicode.IsUpper(r):
			j := i + 1
			for j < len(runes) && unicode.IsUpper(runes[j]) {
				j++
			}
			if j < len(runes) && unicode.IsLower(runes[j]) && j-i > 1 {
				j-- // last capital belongs to the following word
			}
			if j < len(runes) && unicode.IsLower(runes[j]) && j == i+1 {
				// single capital leading a lowercase run
				for j < len(runes) && unicode.IsLower(runes[j]) {
					j++
				}
			}
			words = append(words, strings.ToLower(string(runes[i:j])))
			i = j
		case unicode.IsLower(r):
			j := i
			for j < len(runes) && unicode.IsLower(runes[j]) {
				j++
			}
			words = append(words, string(runes[i:j]))
			i = j
		default:
			i++
		}
	}
	if len(words) == 0 {
		return property
	}
	return strings.Join(words, "_")
}

// ComputeLastPage returns the highest page that still holds records for
// the given total, floored at 1 so an empty listing still has a page.
func ComputeLastPage(totalItemCount, pageSize int64) int64 {
	if pageSize < 1 {
		return 1
	}
	page := totalItemCount / pageSize
	if totalItemCount%pageSize > 0 {
		page++
	}
	if page < 1 {
		return 1
	}
	return page
}

// ShouldStepBackAPage reports whether deleting a record will leave the
// current page empty: the record was the sole remaining one on a page
// beyond the first.
func ShouldStepBackAPage(currentPage, recordCountBeforeDelete, pageSize int64) bool {
	if pageSize < 1 {
		return false
	}
	return currentPage > 1 && recordCountBeforeDelete%pageSize == 1
}
