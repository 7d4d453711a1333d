package config

import (
	"os"
	"path/filepath"
	"testing"

	"timekeep/internal/domain"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.Tasks.PageSize != 5 {
		t.Fatalf("default page size = %d, want 5", s.Tasks.PageSize)
	}
	statuses := s.DefaultStatuses()
	want := []domain.Status{domain.StatusTodo, domain.StatusDoing, domain.StatusPaused}
	if len(statuses) != len(want) {
		t.Fatalf("default statuses = %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("default statuses = %v, want %v", statuses, want)
		}
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Tasks.PageSize != Default().Tasks.PageSize {
		t.Fatalf("missing file should yield defaults, got %+v", s)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := Default()
	s.Tasks.PageSize = 25
	s.Server.Addr = "127.0.0.1:9999"
	if err := s.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Tasks.PageSize != 25 || got.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	if _, err := FromYAML([]byte("tasks:\n  page_size: 0\n")); err == nil {
		t.Fatal("page size 0 should be rejected")
	}
	if _, err := FromYAML([]byte("tasks:\n  default_statuses: [bogus]\n")); err == nil {
		t.Fatal("unknown status should be rejected")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".timekeep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(dir), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("malformed settings should fail to load")
	}
}
