package repository

import (
	"context"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// NotificationRepository defines all persistence operations for notifications.
// The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Notification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error)

	// IncrementAttempt bumps attempt_count and sets last_attempted_at,
	// returning the post-increment count. It is the worker's exclusive
	// write path; the retry engine never touches last_attempted_at.
	IncrementAttempt(ctx context.Context, id string, at time.Time) (int, error)

	MarkSent(ctx context.Context, id string, providerResponse string, sentAt time.Time) error

	// ScheduleRetry resets status to PENDING with a future send_at,
	// recording the error that triggered the retry.
	ScheduleRetry(ctx context.Context, id string, sendAt time.Time, errMsg string) error

	// MarkFailed terminates a notification as FAILED. Used by the DLQ
	// manager when moving a notification to the dead-letter queue.
	MarkFailed(ctx context.Context, id string, errMsg string, failedAt time.Time) error

	// Cancel transitions PENDING -> CANCELLED under a row lock; any other
	// current status yields domain.ErrInvalidTransition.
	Cancel(ctx context.Context, id string) error

	// ResurrectFromDLQ resets a FAILED notification back to PENDING with
	// attempt_count=0 and a fresh send_at, clearing failure fields.
	ResurrectFromDLQ(ctx context.Context, id string, sendAt time.Time) error

	// FindDuePending returns PENDING notifications whose send_at has
	// elapsed, bounded to a small batch. Covers both originally-deferred
	// and retry-rescheduled notifications with a single query.
	FindDuePending(ctx context.Context, limit int) ([]*domain.Notification, error)
}
