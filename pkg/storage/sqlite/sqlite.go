// Package sqlite provides a SQLite-backed storage driver.
//
// Each session's snapshot is stored as a single JSON document. The store is
// read-modify-written as a whole per operation, so a one-row-per-session
// table is the natural schema.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed driver. The dbPath can be a file
// path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Load retrieves the snapshot for a session.
func (d *Driver) Load(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	query := `SELECT snapshot FROM sessions WHERE session_id = ?`

	var raw string
	err := d.db.QueryRowContext(ctx, query, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Save upserts the snapshot for a session.
func (d *Driver) Save(ctx context.Context, sessionID string, snap *session.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
	INSERT INTO sessions (session_id, snapshot, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(session_id) DO UPDATE SET
		snapshot = excluded.snapshot,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := d.db.ExecContext(ctx, query, sessionID, string(raw)); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Delete removes all stored state for a session.
func (d *Driver) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM sessions WHERE session_id = ?`

	if _, err := d.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// Sessions lists all stored session ids.
func (d *Driver) Sessions(ctx context.Context) ([]string, error) {
	query := `SELECT session_id FROM sessions ORDER BY session_id`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
