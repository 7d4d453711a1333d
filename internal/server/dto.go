package server

import (
	"fmt"
	"time"

	"timekeep/internal/domain"
	"timekeep/internal/engine"
	"timekeep/internal/timespan"
)

type CreateTaskRequest struct {
	Title             string  `json:"title" minLength:"1"`
	Description       string  `json:"description,omitempty"`
	ScheduledStart    *string `json:"scheduled_start_date,omitempty" format:"date-time"`
	ScheduledComplete *string `json:"scheduled_complete_date,omitempty" format:"date-time"`
	EstimatedDuration *int64  `json:"estimated_duration,omitempty" minimum:"0"`
	TagIDs            []int64 `json:"tag_ids,omitempty"`
}

type UpdateTaskRequest struct {
	Title             string  `json:"title" minLength:"1"`
	Description       string  `json:"description,omitempty"`
	ScheduledStart    *string `json:"scheduled_start_date,omitempty" format:"date-time"`
	ScheduledComplete *string `json:"scheduled_complete_date,omitempty" format:"date-time"`
	EstimatedDuration *int64  `json:"estimated_duration,omitempty" minimum:"0"`
	ElapsedDuration   *int64  `json:"elapsed_duration,omitempty" minimum:"0"`
}

type WorkIntervalRequest struct {
	Start string `json:"start_date" format:"date-time"`
	End   string `json:"end_date" format:"date-time"`
}

type SearchTasksRequest struct {
	Page      int64    `json:"page,omitempty" minimum:"1"`
	PageSize  int64    `json:"page_size,omitempty" minimum:"1"`
	Query     *string  `json:"query,omitempty"`
	Statuses  []string `json:"statuses,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	StartBy   *string  `json:"start_by,omitempty" format:"date-time"`
	DueBy     *string  `json:"due_by,omitempty" format:"date-time"`
	SortField string   `json:"sort_field,omitempty"`
	SortOrder string   `json:"sort_order,omitempty" enum:",asc,desc"`
}

type CommentRequest struct {
	Message string `json:"message" minLength:"1"`
}

type TagRequest struct {
	Value string `json:"value" minLength:"1"`
}

type APIKeyCreatedResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func parseRequestTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return t, nil
}

func optionalRequestTime(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseRequestTime(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func createOptions(req CreateTaskRequest) (engine.TaskCreateOptions, error) {
	opts := engine.TaskCreateOptions{
		Title:       req.Title,
		Description: req.Description,
		TagIDs:      req.TagIDs,
	}
	var err error
	if opts.ScheduledStart, err = optionalRequestTime("scheduled_start_date", req.ScheduledStart); err != nil {
		return opts, err
	}
	if opts.ScheduledComplete, err = optionalRequestTime("scheduled_complete_date", req.ScheduledComplete); err != nil {
		return opts, err
	}
	if req.EstimatedDuration != nil {
		span := timespan.FromSeconds(*req.EstimatedDuration)
		opts.EstimatedDuration = &span
	}
	return opts, nil
}

func editOptions(id int64, req UpdateTaskRequest) (engine.TaskEditOptions, error) {
	opts := engine.TaskEditOptions{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
	}
	var err error
	if opts.ScheduledStart, err = optionalRequestTime("scheduled_start_date", req.ScheduledStart); err != nil {
		return opts, err
	}
	if opts.ScheduledComplete, err = optionalRequestTime("scheduled_complete_date", req.ScheduledComplete); err != nil {
		return opts, err
	}
	if req.EstimatedDuration != nil {
		span := timespan.FromSeconds(*req.EstimatedDuration)
		opts.EstimatedDuration = &span
	}
	if req.ElapsedDuration != nil {
		span := timespan.FromSeconds(*req.ElapsedDuration)
		opts.Elapsed = &span
	}
	return opts, nil
}

func parseStatuses(values []string) ([]domain.Status, error) {
	out := make([]domain.Status, 0, len(values))
	for _, v := range values {
		s, err := domain.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
