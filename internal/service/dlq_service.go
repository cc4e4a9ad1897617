package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/repository"
)

// DLQService is the DLQ Manager (C9): parks notifications that exhausted
// their retry budget or failed non-retryably, and exposes operator actions
// over them.
type DLQService struct {
	dlq   repository.DLQRepository
	notif repository.NotificationRepository
	log   *zap.Logger
}

func NewDLQService(dlq repository.DLQRepository, notif repository.NotificationRepository, logger *zap.Logger) *DLQService {
	return &DLQService{dlq: dlq, notif: notif, log: logger}
}

// MoveToDLQ inserts a DLQ entry and then marks the notification FAILED.
// A duplicate entry for the same notification_id is a conflict surfaced to
// the caller (domain.ErrDLQEntryExists) rather than silently absorbed — the
// source does not guard against this case either (§9 Open Question 5), and
// this spec keeps that behavior deliberately.
//
// These are two separate repository calls rather than one cross-repository
// transaction: NotificationRepository and DLQRepository are independent
// interfaces so that either can be backed by a different store. If Create
// succeeds but MarkFailed fails, the notification is left PENDING with an
// orphaned DLQ entry; this is logged loudly because it is the one place the
// two tables can observably diverge.
func (s *DLQService) MoveToDLQ(ctx context.Context, notificationID, reason, errMsg string) error {
	n, err := s.notif.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := &domain.DLQEntry{
		ID:             uuid.New().String(),
		NotificationID: notificationID,
		FailureReason:  reason,
		RetryHistory: domain.RetryHistory{
			TotalAttempts:   n.AttemptCount,
			LastError:       errMsg,
			LastAttemptedAt: n.LastAttemptedAt,
			FailureReason:   reason,
		},
		MovedToDLQAt: now,
	}

	if err := s.dlq.Create(ctx, entry); err != nil {
		return err
	}

	if err := s.notif.MarkFailed(ctx, notificationID, errMsg, now); err != nil {
		s.log.Error("dlq entry created but notification was not marked failed",
			zap.String("notification_id", notificationID), zap.String("dlq_id", entry.ID), zap.Error(err))
		return err
	}

	return nil
}

// RetryFromDLQ is the only legal way to resurrect a FAILED notification
// (§4.1): it resets attempt_count, clears failure fields, sets a fresh
// send_at, and marks the DLQ entry resolved so it is not retried twice.
func (s *DLQService) RetryFromDLQ(ctx context.Context, dlqID string) (*domain.Notification, error) {
	entry, err := s.dlq.GetByID(ctx, dlqID)
	if err != nil {
		return nil, err
	}
	if entry.Resolved {
		return nil, domain.ErrDLQAlreadyResolved
	}

	now := time.Now().UTC()
	if err := s.notif.ResurrectFromDLQ(ctx, entry.NotificationID, now); err != nil {
		return nil, err
	}
	if err := s.dlq.Resolve(ctx, dlqID, nil, now); err != nil {
		s.log.Error("notification resurrected but dlq entry was not resolved",
			zap.String("notification_id", entry.NotificationID), zap.String("dlq_id", dlqID), zap.Error(err))
	}

	return s.notif.GetByID(ctx, entry.NotificationID)
}

// ResolveDLQ marks a DLQ entry resolved without resurrecting the
// notification — the operator decided the failure does not warrant a retry.
func (s *DLQService) ResolveDLQ(ctx context.Context, dlqID string, resolvedBy *string) error {
	return s.dlq.Resolve(ctx, dlqID, resolvedBy, time.Now().UTC())
}

func (s *DLQService) List(ctx context.Context, resolved *bool, limit, offset int) ([]*domain.DLQEntry, int, error) {
	return s.dlq.List(ctx, resolved, limit, offset)
}

func (s *DLQService) Stats(ctx context.Context) (domain.DLQStats, error) {
	return s.dlq.Stats(ctx)
}

// CleanupOld deletes resolved DLQ entries older than the given age,
// matching the "resolved DLQ entries cleaned by age policy" lifecycle rule.
func (s *DLQService) CleanupOld(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.dlq.CleanupOld(ctx, time.Now().UTC().Add(-olderThan))
}
