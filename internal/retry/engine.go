// Package retry implements the Retry Engine (C8): the backoff formula and
// the decision of whether a failed attempt gets rescheduled or handed to
// the DLQ Manager.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/repository"
)

// BackoffConfig carries the three tunables from §4.5. Zero values are
// invalid; callers should fill these from config defaults.
type BackoffConfig struct {
	BaseDelay      time.Duration
	ExponentialBase float64
	MaxDelay       time.Duration
}

// Delay computes the jittered delay for the given already-made
// attempt count, per the formula in §4.5:
//
//	raw    = base_delay * (exponent_base ^ attempts)
//	capped = min(raw, max_delay)
//	jitter = uniform(0, capped * 0.1)
//	delay  = floor(capped + jitter)
func (c BackoffConfig) Delay(attempts int) time.Duration {
	raw := float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempts))
	capped := math.Min(raw, float64(c.MaxDelay))
	jitter := rand.Float64() * capped * 0.1
	return time.Duration(math.Floor(capped + jitter))
}

// NoJitterDelay is Delay without the random component, used by the
// monotonicity property test (§8 invariant 4) so results are deterministic.
func (c BackoffConfig) NoJitterDelay(attempts int) time.Duration {
	raw := float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempts))
	capped := math.Min(raw, float64(c.MaxDelay))
	return time.Duration(math.Floor(capped))
}

// DLQMover is the subset of DLQService the Retry Engine needs; kept as a
// narrow interface so the engine package does not import service (which
// would create an import cycle — service also depends on repositories the
// engine touches).
type DLQMover interface {
	MoveToDLQ(ctx context.Context, notificationID, reason, errMsg string) error
}

// Engine computes the next attempt time for a failed delivery and either
// reschedules the notification or hands it to the DLQ Manager.
type Engine struct {
	notif   repository.NotificationRepository
	markers repository.RetryMarkerRepository
	dlq     DLQMover
	backoff BackoffConfig
	log     *zap.Logger
	onRetry func(domain.Channel)
}

func NewEngine(
	notif repository.NotificationRepository,
	markers repository.RetryMarkerRepository,
	dlq DLQMover,
	backoff BackoffConfig,
	logger *zap.Logger,
	onRetry func(domain.Channel),
) *Engine {
	if onRetry == nil {
		onRetry = func(domain.Channel) {}
	}
	return &Engine{notif: notif, markers: markers, dlq: dlq, backoff: backoff, log: logger, onRetry: onRetry}
}

// ScheduleRetry implements §4.5's ScheduleRetry operation. n.AttemptCount is
// the count already made (post-increment, set by the worker before the
// adapter call). When it has reached max_retries, the notification is handed
// to the DLQ Manager instead of being rescheduled.
func (e *Engine) ScheduleRetry(ctx context.Context, n *domain.Notification, errMsg string) error {
	if n.AttemptCount >= n.MaxRetries {
		return e.dlq.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, errMsg)
	}

	delay := e.backoff.Delay(n.AttemptCount)
	sendAt := time.Now().UTC().Add(delay)

	if err := e.notif.ScheduleRetry(ctx, n.ID, sendAt, errMsg); err != nil {
		return err
	}

	marker := &domain.RetryMarker{
		ID:             uuid.New().String(),
		NotificationID: n.ID,
		Attempt:        n.AttemptCount,
		ScheduledFor:   sendAt,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.markers.Create(ctx, marker); err != nil {
		// Sidecar write failure never blocks dispatch — it exists purely
		// for operator observability (§3).
		e.log.Warn("failed to record retry marker", zap.String("notification_id", n.ID), zap.Error(err))
	}

	e.onRetry(n.Channel)
	return nil
}

// NonRetryable hands straight to the DLQ Manager, bypassing the backoff
// schedule entirely. Used when an adapter reports Retryable=false or the
// provider registry has no adapter for the requested provider.
func (e *Engine) NonRetryable(ctx context.Context, n *domain.Notification, reason, errMsg string) error {
	return e.dlq.MoveToDLQ(ctx, n.ID, reason, errMsg)
}
