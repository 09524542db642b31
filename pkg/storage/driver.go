// Package storage defines the persistence layer for conversation memory
// snapshots.
//
// A snapshot is read and written wholesale: pipeline stages load the full
// per-session state, mutate the in-memory view, and save it back. Drivers
// are pluggable via configuration (inmemory, sqlite, postgres).
package storage

import (
	"context"

	"github.com/storylore/chronicle/pkg/session"
)

// Driver persists per-session memory snapshots keyed by session id.
type Driver interface {
	// Load retrieves the snapshot for a session. Returns ErrNotFound when
	// the session has no stored state yet.
	Load(ctx context.Context, sessionID string) (*session.Snapshot, error)

	// Save writes the snapshot for a session, replacing any existing state.
	Save(ctx context.Context, sessionID string, snap *session.Snapshot) error

	// Delete removes all stored state for a session.
	Delete(ctx context.Context, sessionID string) error

	// Sessions lists the ids of all stored sessions.
	Sessions(ctx context.Context) ([]string, error)

	// Close releases driver resources.
	Close() error
}

// LoadOrInit loads a session's snapshot, returning a fresh empty snapshot
// when none is stored yet.
func LoadOrInit(ctx context.Context, d Driver, sessionID string) (*session.Snapshot, error) {
	snap, err := d.Load(ctx, sessionID)
	if err != nil {
		if _, ok := err.(ErrNotFound); ok {
			return session.NewSnapshot(), nil
		}
		return nil, err
	}
	return snap, nil
}
