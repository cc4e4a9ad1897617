package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// RetryMarkerRepository persists the observability sidecar described
// alongside the retry engine. Dispatch decisions never read from it; it
// exists for operator visibility and age-based cleanup only.
type RetryMarkerRepository interface {
	Create(ctx context.Context, marker *domain.RetryMarker) error
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type pgRetryMarkerRepository struct {
	pool *pgxpool.Pool
}

func NewPgRetryMarkerRepository(pool *pgxpool.Pool) RetryMarkerRepository {
	return &pgRetryMarkerRepository{pool: pool}
}

func (r *pgRetryMarkerRepository) Create(ctx context.Context, marker *domain.RetryMarker) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO retry_markers (id, notification_id, attempt, scheduled_for, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		marker.ID, marker.NotificationID, marker.Attempt, marker.ScheduledFor, marker.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert retry marker: %w", err)
	}
	return nil
}

func (r *pgRetryMarkerRepository) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM retry_markers WHERE scheduled_for < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup retry markers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MockRetryMarkerRepository is a hand-written, in-memory implementation used
// in unit tests.
type MockRetryMarkerRepository struct {
	mu      sync.Mutex
	markers []*domain.RetryMarker
}

func NewMockRetryMarkerRepository() *MockRetryMarkerRepository {
	return &MockRetryMarkerRepository{}
}

func (m *MockRetryMarkerRepository) Create(_ context.Context, marker *domain.RetryMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *marker
	m.markers = append(m.markers, &clone)
	return nil
}

func (m *MockRetryMarkerRepository) CleanupOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.markers[:0]
	removed := 0
	for _, marker := range m.markers {
		if marker.ScheduledFor.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, marker)
	}
	m.markers = kept
	return removed, nil
}
