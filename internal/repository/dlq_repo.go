package repository

import (
	"context"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// DLQRepository defines persistence operations for dead-lettered
// notifications. One entry exists per notification (unique on
// notification_id); a second MoveToDLQ for the same notification is a
// conflict, surfaced rather than silently absorbed.
type DLQRepository interface {
	Create(ctx context.Context, entry *domain.DLQEntry) error
	GetByID(ctx context.Context, id string) (*domain.DLQEntry, error)
	Resolve(ctx context.Context, id string, resolvedBy *string, resolvedAt time.Time) error
	List(ctx context.Context, resolved *bool, limit, offset int) ([]*domain.DLQEntry, int, error)
	CleanupOld(ctx context.Context, olderThan time.Time) (int, error)
	Stats(ctx context.Context) (domain.DLQStats, error)
}
