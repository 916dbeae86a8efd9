package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*LeaseLock)(nil)

// LeaseLock implements DistributedLock with rows in the locks table.
// A row whose expires_at has passed is free to be taken over, so a
// crashed holder blocks others for at most its TTL. Unlike session
// advisory locks, a lease can be released from any connection or process
// that shares its owner.
type LeaseLock struct {
	db    *DB
	owner string
}

// NewLeaseLock creates a lock adapter writing owner into held rows.
func NewLeaseLock(db *DB, owner string) *LeaseLock {
	return &LeaseLock{db: db, owner: owner}
}

// Acquire inserts the lease, or takes over an expired one.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var got string
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO locks (name, owner, expires_at)
		VALUES ($1, $2, NOW() + $3::float8 * INTERVAL '1 millisecond')
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		WHERE locks.expires_at < NOW()
		RETURNING name
	`, name, l.owner, ttl.Milliseconds()).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return true, nil
}

// Release deletes the lease if owned. Missing leases are not an error.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM locks WHERE name = $1 AND owner = $2", name, l.owner); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend pushes an owned, unexpired lease to ttl from now.
func (l *LeaseLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE locks SET expires_at = NOW() + $3::float8 * INTERVAL '1 millisecond'
		WHERE name = $1 AND owner = $2 AND expires_at >= NOW()
	`, name, l.owner, ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *LeaseLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
