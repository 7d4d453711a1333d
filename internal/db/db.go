// Package db opens the workspace-local SQLite store. All task state
// lives in one file under the workspace's .timekeep directory, so a
// workspace moves or backs up by copying that directory.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	storeDir  = ".timekeep"
	storeFile = "timekeep.db"
)

// Config locates the store. Workspace is the directory the user runs
// in; empty means the current directory.
type Config struct {
	Workspace string
}

// EnsureWorkspace creates the .timekeep directory under workspace and
// returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, storeDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace %s: %w", workspace, err)
	}
	return dir, nil
}

// Open prepares the store for use. Foreign keys enforce the task
// cascade over work history, tags and comments; WAL plus a busy timeout
// lets the CLI read while a serve process holds the write lock.
func Open(cfg Config) (*sql.DB, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	dsn := "file:" + filepath.Join(dir, storeFile) +
		"?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return sql.Open("sqlite", dsn)
}
