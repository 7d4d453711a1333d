// Package config models the user settings file settings.yml stored in
// the workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"timekeep/internal/domain"
)

// Settings are the user-tunable defaults for listings and the API
// server.
type Settings struct {
	Tasks struct {
		PageSize        int64    `yaml:"page_size"`
		PageSizeOptions []int64  `yaml:"page_size_options"`
		DefaultStatuses []string `yaml:"default_statuses"`
	} `yaml:"tasks"`
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
		// AllowLocal skips authentication entirely. Only sensible for a
		// single-user workstation bind.
		AllowLocal bool `yaml:"allow_local"`
	} `yaml:"server"`
}

const fileName = "settings.yml"

// Path returns the settings file location for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".timekeep", fileName)
}

// Default returns the settings used when no file exists: the first three
// statuses filtered in (hide finished and cancelled work), five rows a
// page, a localhost bind with open access.
func Default() *Settings {
	s := &Settings{}
	s.Tasks.PageSize = 5
	s.Tasks.PageSizeOptions = []int64{5, 10, 25, 50, 100}
	s.Tasks.DefaultStatuses = []string{string(domain.StatusTodo), string(domain.StatusDoing), string(domain.StatusPaused)}
	s.Server.Addr = "127.0.0.1:7600"
	s.Server.AllowLocal = true
	return s
}

// Load reads and validates settings from the workspace, falling back to
// defaults when the file does not exist.
func Load(workspace string) (*Settings, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a settings document.
func FromYAML(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if s.Tasks.PageSize < 1 {
		return fmt.Errorf("tasks.page_size must be >= 1")
	}
	for _, opt := range s.Tasks.PageSizeOptions {
		if opt < 1 {
			return fmt.Errorf("tasks.page_size_options entries must be >= 1")
		}
	}
	for _, raw := range s.Tasks.DefaultStatuses {
		if _, err := domain.ParseStatus(raw); err != nil {
			return fmt.Errorf("tasks.default_statuses: %w", err)
		}
	}
	if s.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// DefaultStatuses resolves the configured status filter.
func (s *Settings) DefaultStatuses() []domain.Status {
	out := make([]domain.Status, 0, len(s.Tasks.DefaultStatuses))
	for _, raw := range s.Tasks.DefaultStatuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			continue
		}
		out = append(out, status)
	}
	return out
}

// Save writes the settings to the workspace.
func (s *Settings) Save(workspace string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	path := Path(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
