package mocks

import (
	"context"
	"sync"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

// MockVectorStore keeps the persisted index in memory.
type MockVectorStore struct {
	mu       sync.Mutex
	stored   *vectorindex.Index
	revision int64

	// LoadErr and SaveErr are returned from Load/Save when set.
	LoadErr error
	SaveErr error
}

// NewMockVectorStore creates an empty store. Load returns ErrNotFound until Save is called.
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{}
}

// Seed sets the persisted index directly.
func (m *MockVectorStore) Seed(idx *vectorindex.Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = idx.Clone()
	m.revision++
}

func (m *MockVectorStore) Load(ctx context.Context) (*vectorindex.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.stored == nil {
		return nil, domain.ErrNotFound
	}
	return m.stored.Clone(), nil
}

func (m *MockVectorStore) Save(ctx context.Context, idx *vectorindex.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.stored = idx.Clone()
	m.revision++
	return nil
}

func (m *MockVectorStore) Revision(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision, nil
}

func (m *MockVectorStore) Close() error {
	return nil
}

// Len returns the number of persisted chunks.
func (m *MockVectorStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return 0
	}
	return m.stored.Len()
}
