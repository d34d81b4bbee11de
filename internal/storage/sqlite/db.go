// Package sqlite provides the local-mode store used when no PostgreSQL
// database is configured. Projects, challenges and chat history live in
// a single file under the kiln data directory.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a sql.DB connection to a SQLite database
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and foreign keys
// enabled
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	d := &DB{DB: db}
	if err := d.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		files       TEXT NOT NULL DEFAULT '[]',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS challenges (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		title          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		difficulty     TEXT NOT NULL DEFAULT 'intermediate',
		type           TEXT NOT NULL DEFAULT 'implementation',
		file_paths     TEXT NOT NULL DEFAULT '[]',
		hints          TEXT NOT NULL DEFAULT '[]',
		hints_revealed INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'not_started',
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversation_messages (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		role         TEXT NOT NULL,
		content      TEXT NOT NULL,
		challenge_id TEXT,
		created_at   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_project
		ON conversation_messages (project_id, created_at);

	CREATE TABLE IF NOT EXISTS github_connections (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL UNIQUE,
		login        TEXT NOT NULL,
		access_token TEXT NOT NULL,
		scope        TEXT NOT NULL DEFAULT '',
		linked_at    DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
