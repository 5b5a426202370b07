// Package db opens the workspace-local SQLite store. Each workspace keeps its
// data in a .crewdesk directory next to the files it tracks.
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	workspaceDir = ".crewdesk"
	dbFile       = "crewdesk.db"
)

type Config struct {
	Workspace string
}

// EnsureWorkspace creates the .crewdesk directory if it is missing and
// returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, workspaceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Open opens the workspace database. Foreign keys are switched on through the
// DSN so every connection in the pool carries the pragma.
func Open(cfg Config) (*sql.DB, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	dsn := "file:" + filepath.Join(dir, dbFile) + "?cache=shared&_pragma=foreign_keys(1)"
	return sql.Open("sqlite", dsn)
}

// Path reports where the workspace database lives without creating anything.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, workspaceDir, dbFile)
}
