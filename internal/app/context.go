// Package app wires the pieces together for the CLI and server: it
// opens the workspace database, runs migrations, loads settings and
// hands back a ready engine.
package app

import (
	"database/sql"
	"fmt"

	"timekeep/internal/config"
	"timekeep/internal/db"
	"timekeep/internal/engine"
	"timekeep/internal/migrate"
)

// Context is everything a command needs to run.
type Context struct {
	DB       *sql.DB
	Settings *config.Settings
	Engine   engine.Engine
}

// Open prepares the workspace: the database is created and migrated on
// first use, and settings fall back to defaults when no settings file
// exists.
func Open(workspace string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	settings, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &Context{
		DB:       conn,
		Settings: settings,
		Engine:   engine.New(conn, settings),
	}, nil
}

// Close releases the database handle.
func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
