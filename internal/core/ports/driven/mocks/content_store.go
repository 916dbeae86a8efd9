package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// MockContentStore is an in-memory content store.
type MockContentStore struct {
	mu    sync.RWMutex
	pages map[string]*domain.PageRecord
	saves int

	// SaveErr is returned from Save when set.
	SaveErr error
}

// NewMockContentStore creates an empty store.
func NewMockContentStore() *MockContentStore {
	return &MockContentStore{pages: make(map[string]*domain.PageRecord)}
}

func (m *MockContentStore) Save(ctx context.Context, page *domain.PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *page
	m.pages[page.Slug] = &cp
	m.saves++
	return nil
}

func (m *MockContentStore) Load(ctx context.Context, slug string) (*domain.PageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *page
	return &cp, nil
}

func (m *MockContentStore) Exists(ctx context.Context, slug string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pages[slug]
	return ok, nil
}

func (m *MockContentStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slugs := make([]string, 0, len(m.pages))
	for s := range m.pages {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Saves returns how many times Save succeeded.
func (m *MockContentStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
