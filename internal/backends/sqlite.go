package backends

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"taskfed/internal/logging"
	"taskfed/internal/registry"
	"taskfed/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS task_lists (
	id          TEXT PRIMARY KEY,
	project_tag TEXT NOT NULL DEFAULT '',
	progress    INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL,
	deleted     INTEGER NOT NULL DEFAULT 0,
	document    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_lists_project ON task_lists(project_tag);
CREATE INDEX IF NOT EXISTS idx_task_lists_updated ON task_lists(updated_at);
`

// SQLiteBackend stores lists as JSON documents in a single SQLite table,
// with indexed columns for the fields listings filter on.
type SQLiteBackend struct {
	dbPath string
	logger *logging.Logger
	conn   *sql.DB
}

// NewSQLiteBackend creates a sqlite backend for the given database file
func NewSQLiteBackend(dbPath string, logger *logging.Logger) *SQLiteBackend {
	return &SQLiteBackend{
		dbPath: dbPath,
		logger: logger,
	}
}

// Kind identifies the backend implementation
func (s *SQLiteBackend) Kind() registry.Kind {
	return registry.KindSQLite
}

// Initialize opens the database, applies pragmas, and creates the schema
func (s *SQLiteBackend) Initialize(ctx context.Context) error {
	if dir := filepath.Dir(s.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas for concurrency and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.conn = conn
	return nil
}

// HealthCheck pings the database connection
func (s *SQLiteBackend) HealthCheck(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.conn.PingContext(ctx)
}

// Load retrieves a list by id; (nil, nil) when absent or soft-deleted
func (s *SQLiteBackend) Load(ctx context.Context, key string) (*types.TaskList, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var document string
	err := s.conn.QueryRowContext(ctx,
		"SELECT document FROM task_lists WHERE id = ? AND deleted = 0", key,
	).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", key, err)
	}

	var list types.TaskList
	if err := json.Unmarshal([]byte(document), &list); err != nil {
		return nil, fmt.Errorf("failed to decode list %s: %w", key, err)
	}
	return &list, nil
}

// Save upserts the document and its indexed columns. Saving over a
// soft-deleted row revives it.
func (s *SQLiteBackend) Save(ctx context.Context, key string, list *types.TaskList) error {
	if s.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	document, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode list %s: %w", key, err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO task_lists (id, project_tag, progress, updated_at, deleted, document)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_tag = excluded.project_tag,
			progress    = excluded.progress,
			updated_at  = excluded.updated_at,
			deleted     = 0,
			document    = excluded.document`,
		key, list.ProjectTag, list.Progress(), list.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"), string(document),
	)
	if err != nil {
		return fmt.Errorf("failed to save list %s: %w", key, err)
	}
	return nil
}

// Delete soft-deletes by default; a permanent delete removes the row.
// Deleting an absent key is not an error.
func (s *SQLiteBackend) Delete(ctx context.Context, key string, permanent bool) error {
	if s.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	var err error
	if permanent {
		_, err = s.conn.ExecContext(ctx, "DELETE FROM task_lists WHERE id = ?", key)
	} else {
		_, err = s.conn.ExecContext(ctx, "UPDATE task_lists SET deleted = 1 WHERE id = ?", key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete list %s: %w", key, err)
	}
	return nil
}

// List summarizes live rows, pushing the project filter into SQL
func (s *SQLiteBackend) List(ctx context.Context, opts ListOptions) ([]types.ListSummary, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := "SELECT document FROM task_lists WHERE deleted = 0"
	args := []interface{}{}
	if opts.ProjectTag != "" {
		query += " AND project_tag = ?"
		args = append(args, opts.ProjectTag)
	}
	if opts.ExcludeCompleted {
		query += " AND progress < 100"
	}
	query += " ORDER BY id"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	defer rows.Close()

	var summaries []types.ListSummary
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var list types.TaskList
		if err := json.Unmarshal([]byte(document), &list); err != nil {
			if s.logger != nil {
				s.logger.Warn("Skipping undecodable row", map[string]interface{}{
					"error": err.Error(),
				})
			}
			continue
		}
		summaries = append(summaries, list.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return summaries, nil
}

// Shutdown closes the database connection
func (s *SQLiteBackend) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
