// Package timekeepsdk is a minimal TimeKeep HTTP API client.
package timekeepsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal TimeKeep HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Status            string         `json:"status"`
	ScheduledComplete *string        `json:"scheduled_complete_date,omitempty"`
	ActualStart       *string        `json:"actual_start_date,omitempty"`
	ActualComplete    *string        `json:"actual_complete_date,omitempty"`
	EstimatedDuration *int64         `json:"estimated_duration,omitempty"`
	ElapsedDuration   int64          `json:"elapsed_duration"`
	WorkHistory       []WorkInterval `json:"work_history,omitempty"`
}

// WorkInterval is one work period on a task.
type WorkInterval struct {
	ID              int64   `json:"id"`
	TaskID          int64   `json:"task_id"`
	Start           string  `json:"start_date"`
	End             *string `json:"end_date,omitempty"`
	ElapsedDuration int64   `json:"elapsed_duration"`
}

// TaskPage is one page of a task search.
type TaskPage struct {
	Page           int64  `json:"page"`
	PageSize       int64  `json:"page_size"`
	TotalItemCount int64  `json:"total_item_count"`
	Data           []Task `json:"data"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask creates a task in To Do.
func (c *Client) CreateTask(ctx context.Context, title, description string) (Task, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v1/tasks", body, &resp)
	return resp, err
}

// GetTask fetches a task with its work history.
func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v1/tasks/%d", id), nil, &resp)
	return resp, err
}

// Transition requests a lifecycle event: start, pause, resume, finish,
// cancel, restore or reopen.
func (c *Client) Transition(ctx context.Context, id int64, event string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/tasks/%d/%s", id, event), nil, &resp)
	return resp, err
}

// SearchTasks runs a filtered, paginated listing.
func (c *Client) SearchTasks(ctx context.Context, page, pageSize int64, statuses []string, query string) (TaskPage, error) {
	body := map[string]any{
		"page":      page,
		"page_size": pageSize,
	}
	if len(statuses) > 0 {
		body["statuses"] = statuses
	}
	if query != "" {
		body["query"] = query
	}
	var resp TaskPage
	err := c.do(ctx, http.MethodPost, "v1/tasks/search", body, &resp)
	return resp, err
}

// AddWorkInterval records a closed correction interval.
func (c *Client) AddWorkInterval(ctx context.Context, taskID int64, start, end string) (Task, error) {
	body := map[string]any{
		"start_date": start,
		"end_date":   end,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/tasks/%d/work-history", taskID), body, &resp)
	return resp, err
}

// DeleteTask removes a task and its history.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("v1/tasks/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
