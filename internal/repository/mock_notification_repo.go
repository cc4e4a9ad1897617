package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr              error
	GetByIDErr             error
	GetByIdempotencyKeyErr error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if existing.IdempotencyKey == n.IdempotencyKey {
			return domain.ErrDuplicateKey
		}
	}
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockNotificationRepository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Notification, error) {
	if m.GetByIdempotencyKeyErr != nil {
		return nil, m.GetByIdempotencyKeyErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notifications {
		if n.IdempotencyKey == key {
			clone := *n
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockNotificationRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Notification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Notification
	for _, n := range m.notifications {
		if f.UserID != nil && n.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && n.Status != *f.Status {
			continue
		}
		if f.Channel != nil && n.Channel != *f.Channel {
			continue
		}
		clone := *n
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := len(result)

	limit := domain.ClampLimit(f.Limit)
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *MockNotificationRepository) IncrementAttempt(_ context.Context, id string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n.AttemptCount++
	n.LastAttemptedAt = &at
	return n.AttemptCount, nil
}

func (m *MockNotificationRepository) MarkSent(_ context.Context, id, providerResponse string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.Status = domain.StatusSent
		n.ProviderResponse = &providerResponse
		n.SentAt = &sentAt
		n.ErrorMessage = nil
	}
	return nil
}

func (m *MockNotificationRepository) ScheduleRetry(_ context.Context, id string, sendAt time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.Status = domain.StatusPending
		n.SendAt = &sendAt
		n.ErrorMessage = &errMsg
	}
	return nil
}

func (m *MockNotificationRepository) MarkFailed(_ context.Context, id string, errMsg string, failedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.Status = domain.StatusFailed
		n.ErrorMessage = &errMsg
		n.FailedAt = &failedAt
	}
	return nil
}

func (m *MockNotificationRepository) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	n.Status = domain.StatusCancelled
	n.FailedAt = &now
	return nil
}

func (m *MockNotificationRepository) ResurrectFromDLQ(_ context.Context, id string, sendAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Status = domain.StatusPending
	n.AttemptCount = 0
	n.FailedAt = nil
	n.ErrorMessage = nil
	n.SendAt = &sendAt
	return nil
}

func (m *MockNotificationRepository) FindDuePending(_ context.Context, limit int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now().UTC()
	var result []*domain.Notification
	for _, n := range m.notifications {
		if n.Status == domain.StatusPending && n.SendAt != nil && !n.SendAt.After(now) {
			clone := *n
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SendAt.Before(*result[j].SendAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
