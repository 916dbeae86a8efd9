package driven

import (
	"context"
	"time"
)

// DistributedLock provides named, expiring locks.
// It keeps at most one background refresh per page in flight, across
// every process sharing the same backend.
type DistributedLock interface {
	// Acquire attempts to take name for ttl.
	// Returns false, nil when another holder already owns it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up name. Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock to ttl from now.
	// Releasing or extending an expired lock is not an error.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
