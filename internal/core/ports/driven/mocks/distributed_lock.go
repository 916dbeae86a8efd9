package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Ensure MockDistributedLock implements DistributedLock
var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock keeps locks in a map and records releases.
// Locks never expire on their own; use Release or Reset.
type MockDistributedLock struct {
	mu       sync.Mutex
	held     map[string]time.Duration
	released []string

	// AcquireErr and ReleaseErr are returned when set.
	AcquireErr error
	ReleaseErr error
}

// NewMockDistributedLock creates an empty lock table.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]time.Duration)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	if _, ok := m.held[name]; ok {
		return false, nil
	}
	m.held[name] = ttl
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReleaseErr != nil {
		return m.ReleaseErr
	}
	delete(m.held, name)
	m.released = append(m.released, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[name]; ok {
		m.held[name] = ttl
	}
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// IsHeld reports whether name is currently held.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[name]
	return ok
}

// TTL returns the ttl name was last acquired or extended with.
func (m *MockDistributedLock) TTL(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}

// Released returns every released name, in order.
func (m *MockDistributedLock) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.released...)
}

// SetLockHeld marks name as held by someone else.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = ttl
}
