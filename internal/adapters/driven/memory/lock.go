// Package memory provides single-process lock and queue backends, used
// when neither Redis nor PostgreSQL is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Ensure Lock implements the interface.
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is an in-process DistributedLock with expiring holds.
type Lock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

// NewLock creates an empty lock table.
func NewLock() *Lock {
	return &Lock{held: make(map[string]time.Time), nowFn: time.Now}
}

// Acquire takes name unless an unexpired hold exists.
func (l *Lock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if exp, ok := l.held[name]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release drops the hold on name.
func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// Extend resets the expiry of an unexpired hold.
func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if exp, ok := l.held[name]; !ok || !now.Before(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.held[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds.
func (l *Lock) Ping(context.Context) error { return nil }
