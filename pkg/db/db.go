// Package db provides a thin retrying wrapper around *sql.DB: the
// Migration Engine and Seed Engine both execute many statements against a
// single logical connection and must retry on transient lock/
// serialization failures without retrying statements that already
// partially committed.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
)

const (
	// lockNotAvailable is raised when a NOWAIT lock request could not be
	// granted immediately.
	lockNotAvailable pq.ErrorCode = "55P03"
	// serializationFailure is raised under SERIALIZABLE isolation when a
	// transaction cannot be placed in a serial order.
	serializationFailure pq.ErrorCode = "40001"
	// deadlockDetected is raised when Postgres' deadlock detector aborts a
	// transaction.
	deadlockDetected pq.ErrorCode = "40P01"

	maxBackoffDuration = 30 * time.Second
	backoffInterval     = 250 * time.Millisecond
)

// DB is the interface the core depends on: a retrying connection handle.
// Production code uses *RDB; tests may substitute a fake.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Close() error
	Raw() *sql.DB
}

// RDB wraps a *sql.DB, retrying queries with exponential backoff (plus
// jitter) on the retryable error codes above.
type RDB struct {
	Conn *sql.DB
}

// Open opens a new *sql.DB via lib/pq and wraps it.
func Open(dsn string) (*RDB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &RDB{Conn: conn}, nil
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case lockNotAvailable, serializationFailure, deadlockDetected:
			return true
		}
	}
	return false
}

func (db *RDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		res, err := db.Conn.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if isRetryable(err) {
			if waitErr := sleepCtx(ctx, b.Duration()); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		return nil, err
	}
}

func (db *RDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		rows, err := db.Conn.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if isRetryable(err) {
			if waitErr := sleepCtx(ctx, b.Duration()); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		return nil, err
	}
}

func (db *RDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.Conn.QueryRowContext(ctx, query, args...)
}

// WithTransaction runs f inside one *sql.Tx, retrying the whole
// transaction on a retryable failure. f is responsible for returning an
// error on any failure; WithTransaction always rolls back on error and
// commits only when f returns nil.
func (db *RDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		tx, err := db.Conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(ctx, tx)
		if err == nil {
			return tx.Commit()
		}

		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}

		if isRetryable(err) {
			if waitErr := sleepCtx(ctx, b.Duration()); waitErr != nil {
				return waitErr
			}
			continue
		}
		return err
	}
}

func (db *RDB) Close() error { return db.Conn.Close() }

func (db *RDB) Raw() *sql.DB { return db.Conn }

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
