// Package lock implements the Lock Manager: a session-scoped cluster-wide
// advisory lock keyed on the Tracking Store's fully-qualified name, held
// for the whole Migration Engine invocation rather than re-acquired per
// unit, so concurrent invocations serialize instead of interleaving.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
)

// KeyFor derives a deterministic int64 advisory-lock key from the tracking
// table's fully qualified name, so two migrators pointed at the same
// tracking table always contend for the same lock.
func KeyFor(qualifiedTrackingTableName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(qualifiedTrackingTableName))
	return int64(h.Sum64())
}

// Manager acquires and releases the cluster-wide advisory lock for one
// Migration Engine invocation.
type Manager struct {
	conn *sql.Conn
	key  int64
	held bool
}

// New binds a Manager to an open *sql.Conn (session-scoped: advisory locks
// are tied to the backend session, so the same *sql.Conn must be used for
// acquire, the engine's work, and release).
func New(conn *sql.Conn, key int64) *Manager {
	return &Manager{conn: conn, key: key}
}

// Acquire attempts a non-blocking lock first (pg_try_advisory_lock); on
// failure it polls with a configurable timeout before giving up with
// MigrationError{LockTimeout}, optionally naming the competing session's
// pid if observable via pg_locks.
func (m *Manager) Acquire(ctx context.Context, timeout time.Duration) error {
	var ok bool
	const tryQ = "SELECT pg_try_advisory_lock($1)"
	if err := m.conn.QueryRowContext(ctx, tryQ, m.key).Scan(&ok); err != nil {
		return &errcat.SQLError{Statement: tryQ, Err: err}
	}
	if ok {
		m.held = true
		return nil
	}

	deadline := time.Now().Add(timeout)
	const pollInterval = 50 * time.Millisecond
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}

		if err := m.conn.QueryRowContext(ctx, tryQ, m.key).Scan(&ok); err != nil {
			return &errcat.SQLError{Statement: tryQ, Err: err}
		}
		if ok {
			m.held = true
			return nil
		}
	}

	competing := m.competingSession(ctx)
	return &errcat.MigrationError{
		Kind:      errcat.KindLockTimeout,
		Competing: competing,
	}
}

// competingSession looks up the pid holding the advisory lock, if
// observable via pg_locks. Returns "" if it cannot be determined.
func (m *Manager) competingSession(ctx context.Context) string {
	const q = `
		SELECT pid FROM pg_catalog.pg_locks
		WHERE locktype = 'advisory'
		AND ((classid::bigint << 32) | objid::bigint) = $1
		AND granted
		LIMIT 1
	`
	var pid int
	if err := m.conn.QueryRowContext(ctx, q, m.key).Scan(&pid); err != nil {
		return ""
	}
	return fmt.Sprintf("pid %d", pid)
}

// Release is idempotent: calling it when the lock isn't held is a no-op.
// Callers must run it on every exit path (including error paths) via
// defer.
func (m *Manager) Release(ctx context.Context) error {
	if !m.held {
		return nil
	}
	const q = "SELECT pg_advisory_unlock($1)"
	if _, err := m.conn.ExecContext(ctx, q, m.key); err != nil {
		return &errcat.SQLError{Statement: q, Err: err}
	}
	m.held = false
	return nil
}

// Held reports whether this manager currently holds the lock.
func (m *Manager) Held() bool { return m.held }
