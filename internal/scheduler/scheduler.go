// Package scheduler implements the Scheduler (C6) and its two sibling
// periodic tasks: the DLQ alert counter and the retry-marker cleanup sweep.
// All three run in a single goroutine, driven by independent time.Ticker
// instances multiplexed through one select loop per §9's guidance to
// collapse the reference architecture's cron-like beat tasks into native
// Go primitives.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/repository"
)

// Scheduler periodically moves due PENDING notifications onto the Delivery
// Queue (§4.5's Scheduler loop), logs a warning when unresolved DLQ entries
// exist, and purges aged-out retry markers.
type Scheduler struct {
	notif   repository.NotificationRepository
	markers repository.RetryMarkerRepository
	q       *queue.DeliveryQueue
	log     *zap.Logger

	tickInterval     time.Duration
	dlqAlertInterval time.Duration
	cleanupInterval  time.Duration
	markerMaxAge     time.Duration
	batchSize        int

	dlqStats   func(ctx context.Context) (domain.DLQStats, error)
	onDLQStats func(unresolved int)
}

func New(
	notif repository.NotificationRepository,
	markers repository.RetryMarkerRepository,
	q *queue.DeliveryQueue,
	dlqStats func(ctx context.Context) (domain.DLQStats, error),
	tickInterval, dlqAlertInterval, cleanupInterval, markerMaxAge time.Duration,
	batchSize int,
	logger *zap.Logger,
	onDLQStats func(unresolved int),
) *Scheduler {
	if onDLQStats == nil {
		onDLQStats = func(int) {}
	}
	return &Scheduler{
		notif: notif, markers: markers, q: q, log: logger,
		tickInterval: tickInterval, dlqAlertInterval: dlqAlertInterval,
		cleanupInterval: cleanupInterval, markerMaxAge: markerMaxAge,
		batchSize: batchSize, dlqStats: dlqStats, onDLQStats: onDLQStats,
	}
}

// Run blocks until ctx is cancelled, driving all three periodic tasks.
func (s *Scheduler) Run(ctx context.Context) {
	schedulerTicker := time.NewTicker(s.tickInterval)
	dlqAlertTicker := time.NewTicker(s.dlqAlertInterval)
	cleanupTicker := time.NewTicker(s.cleanupInterval)
	defer schedulerTicker.Stop()
	defer dlqAlertTicker.Stop()
	defer cleanupTicker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("tick_interval", s.tickInterval),
		zap.Duration("dlq_alert_interval", s.dlqAlertInterval),
		zap.Duration("cleanup_interval", s.cleanupInterval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-schedulerTicker.C:
			s.enqueueDue(ctx)
		case <-dlqAlertTicker.C:
			s.alertOnDLQ(ctx)
		case <-cleanupTicker.C:
			s.cleanupMarkers(ctx)
		}
	}
}

// enqueueDue implements §4.5's Scheduler loop: find PENDING notifications
// whose send_at has elapsed and push them onto the Delivery Queue. A push
// failure is logged and skipped — the row stays PENDING and send_at stays
// in the past, so the next tick retries it.
func (s *Scheduler) enqueueDue(ctx context.Context) {
	due, err := s.notif.FindDuePending(ctx, s.batchSize)
	if err != nil {
		s.log.Error("scheduler: failed to query due notifications", zap.Error(err))
		return
	}

	enqueued := 0
	for _, n := range due {
		if err := s.q.Enqueue(queue.Item{NotificationID: n.ID, Action: queue.ActionSend}); err != nil {
			s.log.Warn("scheduler: delivery queue full, will retry next tick",
				zap.String("notification_id", n.ID), zap.Error(err))
			continue
		}
		enqueued++
	}
	if len(due) > 0 {
		s.log.Info("scheduler tick", zap.Int("due", len(due)), zap.Int("enqueued", enqueued))
	}
}

// alertOnDLQ logs a warning when the dead-letter queue has unresolved
// entries. There is no external paging integration — that is an
// out-of-scope collaborator (§4.5's third periodic task).
func (s *Scheduler) alertOnDLQ(ctx context.Context) {
	stats, err := s.dlqStats(ctx)
	if err != nil {
		s.log.Error("dlq alert: failed to fetch stats", zap.Error(err))
		return
	}
	s.onDLQStats(stats.Unresolved)
	if stats.Unresolved > 0 {
		s.log.Warn("unresolved dlq entries present", zap.Int("unresolved", stats.Unresolved), zap.Int("total", stats.Total))
	}
}

// cleanupMarkers purges retry markers older than markerMaxAge (default 7
// days), matching the daily sidecar-cleanup task in §4.5/§4.6.
func (s *Scheduler) cleanupMarkers(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.markerMaxAge)
	removed, err := s.markers.CleanupOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("retry marker cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Info("retry marker cleanup complete", zap.Int("removed", removed))
	}
}
