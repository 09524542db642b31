// Package inmemory provides an in-memory storage driver, used in tests and
// for ephemeral sessions.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	mu sync.RWMutex

	// snapshots maps session id to stored snapshot.
	snapshots map[string]*session.Snapshot
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		snapshots: make(map[string]*session.Snapshot),
	}
}

// Load retrieves a clone of the stored snapshot, so callers never alias
// stored state.
func (d *Driver) Load(_ context.Context, sessionID string) (*session.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap, ok := d.snapshots[sessionID]
	if !ok {
		return nil, storage.ErrNotFound{SessionID: sessionID}
	}

	return snap.Clone(), nil
}

// Save stores a clone of the snapshot.
func (d *Driver) Save(_ context.Context, sessionID string, snap *session.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.snapshots[sessionID] = snap.Clone()
	return nil
}

// Delete removes a session's stored state. Deleting an absent session is a
// no-op.
func (d *Driver) Delete(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.snapshots, sessionID)
	return nil
}

// Sessions lists stored session ids in sorted order.
func (d *Driver) Sessions(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.snapshots))
	for id := range d.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
