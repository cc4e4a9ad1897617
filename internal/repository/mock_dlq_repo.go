package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// MockDLQRepository is a hand-written, in-memory implementation of
// DLQRepository used in unit tests.
type MockDLQRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.DLQEntry

	CreateErr error
}

func NewMockDLQRepository() *MockDLQRepository {
	return &MockDLQRepository{entries: make(map[string]*domain.DLQEntry)}
}

func (m *MockDLQRepository) Create(_ context.Context, entry *domain.DLQEntry) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.NotificationID == entry.NotificationID {
			return domain.ErrDLQEntryExists
		}
	}
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *MockDLQRepository) GetByID(_ context.Context, id string) (*domain.DLQEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *MockDLQRepository) Resolve(_ context.Context, id string, resolvedBy *string, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Resolved {
		return domain.ErrDLQAlreadyResolved
	}
	e.Resolved = true
	e.ResolvedAt = &resolvedAt
	e.ResolvedBy = resolvedBy
	return nil
}

func (m *MockDLQRepository) List(_ context.Context, resolved *bool, limit, offset int) ([]*domain.DLQEntry, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit = domain.ClampLimit(limit)
	offset = domain.ClampOffset(offset)

	var result []*domain.DLQEntry
	for _, e := range m.entries {
		if resolved != nil && e.Resolved != *resolved {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MovedToDLQAt.After(result[j].MovedToDLQAt) })
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *MockDLQRepository) CleanupOld(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if e.Resolved && e.ResolvedAt != nil && e.ResolvedAt.Before(olderThan) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MockDLQRepository) Stats(_ context.Context) (domain.DLQStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats domain.DLQStats
	for _, e := range m.entries {
		stats.Total++
		if e.Resolved {
			stats.Resolved++
		} else {
			stats.Unresolved++
		}
	}
	return stats, nil
}
