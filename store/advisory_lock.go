package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// advisoryLockKey is the pg_advisory_lock key held by the owning Store of a
// Postgres database. The database holds a single feed, so one key suffices.
const advisoryLockKey int64 = 0x66656564636163 // "feedcac".

// advisoryLock is a session-level Postgres advisory lock, held over a
// connection which is reserved from the pool for the lifetime of the lock.
type advisoryLock struct {
	conn *sql.Conn
}

// lockDatabase takes the exclusive advisory lock of a Postgres database,
// failing with ErrLocationLocked if another session holds it.
func lockDatabase(ctx context.Context, db *sql.DB) (*advisoryLock, error) {
	var conn, err = db.Conn(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "reserving lock connection")
	}

	var acquired bool
	if err = conn.QueryRowContext(ctx,
		"SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, errors.WithMessage(err, "taking advisory lock")
	} else if !acquired {
		_ = conn.Close()
		return nil, errors.WithMessagef(ErrLocationLocked, "advisory lock %d", advisoryLockKey)
	}
	return &advisoryLock{conn: conn}, nil
}

// Close releases the lock, and returns its connection to the pool.
func (l *advisoryLock) Close() error {
	var _, err = l.conn.ExecContext(context.Background(),
		"SELECT pg_advisory_unlock($1)", advisoryLockKey)
	if cErr := l.conn.Close(); err == nil {
		err = cErr
	}
	return errors.WithMessage(err, "releasing advisory lock")
}
