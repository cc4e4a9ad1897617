// Package service implements the Intake Service (C5) and the DLQ Manager
// (C9): the two components that sit directly behind the HTTP handlers.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/idempotency"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/repository"
)

// NotificationService is the Intake Service. It validates requests, reserves
// idempotency keys, persists PENDING notifications, and pushes immediate
// sends onto the Delivery Queue. Workers and the Scheduler never call back
// into this service — they talk to the repository and queue directly.
type NotificationService struct {
	repo  repository.NotificationRepository
	idem  idempotency.Store
	q     *queue.DeliveryQueue
	ttl   time.Duration
	log   *zap.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	idem idempotency.Store,
	q *queue.DeliveryQueue,
	idempotencyTTL time.Duration,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{repo: repo, idem: idem, q: q, ttl: idempotencyTTL, log: logger}
}

// Create validates, reserves the idempotency key, persists a PENDING
// notification, and enqueues it for immediate delivery when eligible.
//
// A key collision rejects the call outright with ErrDuplicateKey (§4.2
// step 3); this service never returns an existing row in place of the new
// one — at-least-once delivery with best-effort dedupe is the stated
// non-goal of exactly-once semantics, not an idempotent-read API.
func (s *NotificationService) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	reserved, err := s.idem.Reserve(ctx, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !reserved {
		return nil, domain.ErrDuplicateKey
	}

	n := s.build(req, key)
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.enqueueIfDue(ctx, n)
	return n, nil
}

// BulkCreate folds Create over every item independently; one item's failure
// does not roll back or block the others (§4.2).
func (s *NotificationService) BulkCreate(ctx context.Context, reqs []domain.CreateNotificationRequest) []domain.BulkCreateResult {
	results := make([]domain.BulkCreateResult, len(reqs))
	for i, req := range reqs {
		n, err := s.Create(ctx, req)
		if err != nil {
			results[i] = domain.BulkCreateResult{Error: err.Error()}
			continue
		}
		results[i] = domain.BulkCreateResult{Notification: n}
	}
	return results
}

// Cancel transitions a PENDING notification to CANCELLED under the
// repository's row lock. Any other current status yields ErrInvalidTransition.
func (s *NotificationService) Cancel(ctx context.Context, id string) error {
	return s.repo.Cancel(ctx, id)
}

func (s *NotificationService) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *NotificationService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *NotificationService) build(req domain.CreateNotificationRequest, idempotencyKey string) *domain.Notification {
	now := time.Now().UTC()
	maxRetries := domain.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	return &domain.Notification{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		IdempotencyKey: idempotencyKey,
		Channel:        req.Channel,
		Provider:       req.Provider,
		Payload:        req.Payload,
		Status:         domain.StatusPending,
		AttemptCount:   0,
		MaxRetries:     maxRetries,
		SendAt:         req.SendAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// enqueueIfDue pushes the notification onto the Delivery Queue when it has
// no send_at or one that has already elapsed; otherwise it is left for the
// Scheduler to pick up. A full queue is logged and the row stays PENDING
// with no send_at — per §5.1 this row will not be re-enqueued automatically
// because the Scheduler's query requires send_at IS NOT NULL. This is an
// accepted, operator-visible trade-off, not a bug to work around here.
func (s *NotificationService) enqueueIfDue(ctx context.Context, n *domain.Notification) {
	if n.SendAt != nil && n.SendAt.After(time.Now().UTC()) {
		return
	}

	if err := s.q.Enqueue(queue.Item{NotificationID: n.ID, Action: queue.ActionSend}); err != nil {
		s.log.Warn("delivery queue full, notification remains pending",
			zap.String("notification_id", n.ID), zap.Error(err))
	}
}
