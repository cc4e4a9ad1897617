package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/provider"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/ratelimiter"
	"github.com/dispatchkit/notifyd/internal/repository"
)

// Pool manages the lifecycle of all workers sharing one Delivery Queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates count identical workers. Channel-specific throughput is
// governed by the rate limiter (C11), not by per-channel worker pools.
func NewPool(
	count int,
	q *queue.DeliveryQueue,
	repo repository.NotificationRepository,
	registry *provider.Registry,
	retryEngine RetryHandler,
	limiter *ratelimiter.ChannelLimiters,
	sendTimeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	workers := make([]*Worker, count)
	for i := range workers {
		workers[i] = NewWorker(i, q, repo, registry, retryEngine, limiter, sendTimeout,
			logger.With(zap.Int("worker_id", i)), hooks)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines. Cancelling ctx triggers a
// graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
