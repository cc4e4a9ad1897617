// Package worker implements the Worker Pool (C7): draining the Delivery
// Queue, loading notifications, invoking the provider adapter, and handing
// off to the Retry Engine or marking terminal success.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/provider"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/ratelimiter"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/retry"
)

// RetryHandler is the subset of retry.Engine a worker needs.
type RetryHandler interface {
	ScheduleRetry(ctx context.Context, n *domain.Notification, errMsg string) error
	NonRetryable(ctx context.Context, n *domain.Notification, reason, errMsg string) error
}

var _ RetryHandler = (*retry.Engine)(nil)

// MetricHooks carries the metric callback functions injected by main.
type MetricHooks struct {
	OnSent   func(channel domain.Channel, latency time.Duration)
	OnFailed func(channel domain.Channel)
}

// Worker is a single goroutine draining the shared Delivery Queue.
type Worker struct {
	id          int
	q           *queue.DeliveryQueue
	repo        repository.NotificationRepository
	registry    *provider.Registry
	retryEngine RetryHandler
	limiter     *ratelimiter.ChannelLimiters
	sendTimeout time.Duration
	logger      *zap.Logger
	hooks       MetricHooks
}

func NewWorker(
	id int,
	q *queue.DeliveryQueue,
	repo repository.NotificationRepository,
	registry *provider.Registry,
	retryEngine RetryHandler,
	limiter *ratelimiter.ChannelLimiters,
	sendTimeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	if hooks.OnSent == nil {
		hooks.OnSent = func(domain.Channel, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Channel) {}
	}
	return &Worker{
		id: id, q: q, repo: repo, registry: registry, retryEngine: retryEngine,
		limiter: limiter, sendTimeout: sendTimeout, logger: logger, hooks: hooks,
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("worker_id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("worker_id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

// ProcessForTest handles a single queue item synchronously, exactly as Run
// would, so tests outside the package can drive one dispatch step.
func (w *Worker) ProcessForTest(ctx context.Context, item queue.Item) {
	w.process(ctx, item)
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	log := w.logger.With(zap.String("notification_id", item.NotificationID))

	n, err := w.repo.GetByID(ctx, item.NotificationID)
	if err != nil {
		log.Warn("notification not found, dropping envelope", zap.Error(err))
		return
	}

	// At-least-once delivery means the same envelope can surface twice;
	// a terminal notification is a silent no-op (§4.4 step 3).
	switch n.Status {
	case domain.StatusSent, domain.StatusCancelled, domain.StatusFailed:
		return
	}

	now := time.Now().UTC()
	attempts, err := w.repo.IncrementAttempt(ctx, n.ID, now)
	if err != nil {
		log.Error("failed to increment attempt count", zap.Error(err))
		return
	}
	n.AttemptCount = attempts
	n.LastAttemptedAt = &now

	if err := w.limiter.Wait(ctx, n.Channel); err != nil {
		// ctx cancelled while waiting on the rate limiter: shutting down.
		return
	}

	adapter, ok := w.registry.Resolve(n.Provider)
	if !ok {
		w.handleOutcome(ctx, n, &provider.Outcome{
			Success: false, Message: domain.ErrProviderUnconfigured.Error(), Retryable: false,
		}, domain.ReasonProviderUnconfigured, log)
		return
	}

	start := time.Now()
	outcome, sendErr := w.send(ctx, adapter, n)
	elapsed := time.Since(start)

	if sendErr != nil {
		outcome = &provider.Outcome{
			Success:   false,
			Message:   fmt.Sprintf("transport error: %v", sendErr),
			Retryable: true,
		}
	}

	if outcome.Success {
		w.markSent(ctx, n, outcome, elapsed, log)
		return
	}

	reason := domain.ReasonNonRetryableProvider
	w.handleOutcome(ctx, n, outcome, reason, log)
}

// send enforces the bounded wall-clock timeout and converts an adapter
// panic into a retryable transport error rather than crashing the worker
// (§4.4 step 10).
func (w *Worker) send(ctx context.Context, adapter provider.Provider, n *domain.Notification) (outcome *provider.Outcome, err error) {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()

	return adapter.Send(sendCtx, n)
}

func (w *Worker) markSent(ctx context.Context, n *domain.Notification, outcome *provider.Outcome, elapsed time.Duration, log *zap.Logger) {
	now := time.Now().UTC()
	resp := encodeResponse(outcome.Response)
	if err := w.repo.MarkSent(ctx, n.ID, resp, now); err != nil {
		log.Error("failed to mark notification sent", zap.Error(err))
		return
	}
	w.hooks.OnSent(n.Channel, elapsed)
	log.Info("notification sent", zap.Duration("latency", elapsed))
}

func (w *Worker) handleOutcome(ctx context.Context, n *domain.Notification, outcome *provider.Outcome, nonRetryableReason string, log *zap.Logger) {
	w.hooks.OnFailed(n.Channel)

	if !outcome.Retryable {
		if err := w.retryEngine.NonRetryable(ctx, n, nonRetryableReason, outcome.Message); err != nil {
			log.Error("failed to move notification to dlq", zap.Error(err))
		}
		log.Warn("notification failed non-retryably", zap.String("reason", nonRetryableReason), zap.String("message", outcome.Message))
		return
	}

	if err := w.retryEngine.ScheduleRetry(ctx, n, outcome.Message); err != nil {
		log.Error("failed to schedule retry", zap.Error(err))
	}
	log.Warn("notification delivery failed, retry scheduled", zap.String("message", outcome.Message), zap.Int("attempt_count", n.AttemptCount))
}

// encodeResponse serializes a provider's structured response map to text
// for storage in notification.provider_response (§3: "serialized as text").
func encodeResponse(response map[string]any) string {
	if len(response) == 0 {
		return ""
	}
	b, err := json.Marshal(response)
	if err != nil {
		return ""
	}
	return string(b)
}
