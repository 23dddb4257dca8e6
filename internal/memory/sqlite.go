// Package memory persists tasks, requirement history, and the user directory in SQLite.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/josephgoksu/taskflow/internal/workflow"
	_ "modernc.org/sqlite"
)

// DefaultDBFile is the database file name inside the data directory.
const DefaultDBFile = "taskflow.db"

// SQLiteStore implements workflow.Store using SQLite for persistence.
type SQLiteStore struct {
	db       *sql.DB
	basePath string
}

var _ workflow.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database in basePath.
// basePath ":memory:" opens a private in-memory database.
func NewSQLiteStore(basePath, fileName string) (*SQLiteStore, error) {
	var dbPath string
	if basePath == ":memory:" {
		dbPath = ":memory:"
	} else {
		if fileName == "" {
			fileName = DefaultDBFile
		}
		dbPath = filepath.Join(basePath, fileName)

		if err := os.MkdirAll(basePath, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes transactions and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		basePath: basePath,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type_id INTEGER NOT NULL,
		owner_user_id INTEGER NOT NULL REFERENCES users(id),
		next_assignee_user_id INTEGER NOT NULL REFERENCES users(id),
		status INTEGER NOT NULL DEFAULT 1,   -- 0 = closed
		requirement TEXT NOT NULL DEFAULT '',
		custom_fields TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	-- One row per (task, status): evidence submitted when the task left that status.
	CREATE TABLE IF NOT EXISTS task_status_requirements (
		task_id INTEGER NOT NULL,
		status_id INTEGER NOT NULL,
		requirement_value TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (task_id, status_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BasePath returns the data directory the store was opened in.
func (s *SQLiteStore) BasePath() string {
	return s.basePath
}

// WithTaskTx runs fn inside one transaction, rolling back if fn fails.
func (s *SQLiteStore) WithTaskTx(ctx context.Context, fn func(tx workflow.TaskTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&taskTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
