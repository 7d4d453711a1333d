package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"timekeep/internal/config"
	"timekeep/internal/db"
	"timekeep/internal/domain"
	"timekeep/internal/engine"
	"timekeep/internal/migrate"
)

type testServer struct {
	URL   string
	now   *time.Time
	close func()
}

func (s *testServer) Advance(d time.Duration) { *s.now = s.now.Add(d) }
func (s *testServer) Close()                  { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return now }
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	return &testServer{
		URL: "http://" + ln.Addr().String(),
		now: &now,
		close: func() {
			srv.Close()
			conn.Close()
		},
	}
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decodeTask(t *testing.T, data []byte) domain.Task {
	t.Helper()
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("decode task: %v (%s)", err, data)
	}
	return task
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, data)
	}
	return envelope.Error.Code
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	defer srv.Close()
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRejectedWithoutAllowLocal(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: false})
	defer srv.Close()
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1/tags", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("code = %q", code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: true})
	defer srv.Close()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "ship it"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d (%s)", resp.StatusCode, data)
	}
	task := decodeTask(t, data)
	if task.Status != domain.StatusTodo {
		t.Fatalf("status = %q", task.Status)
	}

	resp, data = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/start", srv.URL, task.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start = %d (%s)", resp.StatusCode, data)
	}
	task = decodeTask(t, data)
	if task.Status != domain.StatusDoing || task.ActualStart == nil {
		t.Fatalf("started task = %+v", task)
	}

	srv.Advance(time.Hour)
	resp, data = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/pause", srv.URL, task.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause = %d (%s)", resp.StatusCode, data)
	}
	task = decodeTask(t, data)
	if task.ElapsedDuration != 3600 {
		t.Fatalf("elapsed = %d, want 3600", task.ElapsedDuration)
	}
}

func TestIllegalTransitionCode(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: true})
	defer srv.Close()

	_, data := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "fresh"})
	task := decodeTask(t, data)

	resp, data := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/finish", srv.URL, task.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("finish from todo = %d (%s)", resp.StatusCode, data)
	}
	if code := errorCode(t, data); code != "illegal_transition" {
		t.Fatalf("code = %q, want illegal_transition", code)
	}
}

func TestInvalidIntervalCode(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: true})
	defer srv.Close()

	_, data := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "correction"})
	task := decodeTask(t, data)

	resp, data := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/work-history", srv.URL, task.ID), map[string]any{
		"start_date": "2024-06-01T10:00:00Z",
		"end_date":   "2024-06-01T09:00:00Z",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted interval = %d (%s)", resp.StatusCode, data)
	}
	if code := errorCode(t, data); code != "invalid_interval" {
		t.Fatalf("code = %q, want invalid_interval", code)
	}
}

func TestSearchDefaultsHideFinishedWork(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: true})
	defer srv.Close()

	_, data := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "open item"})
	open := decodeTask(t, data)
	_, data = doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "finished item"})
	done := decodeTask(t, data)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/start", srv.URL, done.ID), nil)
	srv.Advance(time.Minute)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%d/finish", srv.URL, done.ID), nil)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks/search", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search = %d (%s)", resp.StatusCode, data)
	}
	var page domain.PagedData[domain.Task]
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalItemCount != 1 || page.Data[0].ID != open.ID {
		t.Fatalf("default search returned %+v", page)
	}
	if page.PageSize != 5 {
		t.Fatalf("page size = %d, want the settings default 5", page.PageSize)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t, AuthConfig{AllowLocal: true})
	defer srv.Close()

	// mint a key over the loopback exemption
	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1/apikeys", map[string]any{"name": "ci"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key = %d (%s)", resp.StatusCode, data)
	}
	var created APIKeyCreatedResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatal(err)
	}
	if created.Key == "" {
		t.Fatal("key secret missing from create response")
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/tags", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Api-Key", created.Key)
	keyResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	keyResp.Body.Close()
	if keyResp.StatusCode != http.StatusOK {
		t.Fatalf("api key auth = %d", keyResp.StatusCode)
	}

	req.Header.Set("X-Api-Key", "wrong")
	badResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad api key = %d", badResp.StatusCode)
	}
}
