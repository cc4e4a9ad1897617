package queue

import (
	"context"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// DeliveryQueue is a reliable, blocking, FIFO transport of ready-to-send
// notification envelopes between producers (Intake, Scheduler) and the
// Worker Pool, realized as a single buffered channel.
type DeliveryQueue struct {
	items chan Item
}

// New returns a DeliveryQueue with the given buffer size.
func New(capacity int) *DeliveryQueue {
	return &DeliveryQueue{items: make(chan Item, capacity)}
}

// Enqueue places an item on the queue. It is non-blocking: if the channel
// is full, ErrQueueFull is returned immediately rather than blocking the
// caller (an HTTP handler or a background poller).
func (q *DeliveryQueue) Enqueue(item Item) error {
	select {
	case q.items <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled (the
// graceful-shutdown signal), returning (Item{}, false) in the latter case.
func (q *DeliveryQueue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depth returns the current number of items waiting in the queue. Used by
// the metrics handler's JSON snapshot and by main's periodic sampler that
// feeds the queue-depth gauge.
func (q *DeliveryQueue) Depth() int {
	return len(q.items)
}
