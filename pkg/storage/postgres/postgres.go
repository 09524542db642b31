// Package postgres provides a PostgreSQL-backed storage driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// Driver implements storage.Driver using PostgreSQL.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new PostgreSQL-backed driver. The connStr is a
// PostgreSQL connection string, e.g.
// "host=localhost port=5432 user=chronicle dbname=chronicle sslmode=disable"
// or a connection URI like "postgres://chronicle@localhost:5432/chronicle".
func NewDriver(ctx context.Context, connStr string) (*Driver, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection is reachable
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Load retrieves the snapshot for a session.
func (d *Driver) Load(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	query := `SELECT snapshot FROM sessions WHERE session_id = $1`

	var raw []byte
	err := d.db.QueryRowContext(ctx, query, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
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
	VALUES ($1, $2, now())
	ON CONFLICT (session_id) DO UPDATE SET
		snapshot = EXCLUDED.snapshot,
		updated_at = now()
	`

	if _, err := d.db.ExecContext(ctx, query, sessionID, raw); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Delete removes all stored state for a session.
func (d *Driver) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM sessions WHERE session_id = $1`

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
