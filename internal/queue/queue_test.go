package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/queue"
)

func TestDeliveryQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New(4)
	if err := q.Enqueue(queue.Item{NotificationID: "n1", Action: queue.ActionSend}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx := context.Background()
	item, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if item.NotificationID != "n1" {
		t.Fatalf("got %q, want n1", item.NotificationID)
	}
}

func TestDeliveryQueue_FIFOOrdering(t *testing.T) {
	q := queue.New(8)
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(queue.Item{NotificationID: id, Action: queue.ActionSend}); err != nil {
			t.Fatalf("enqueue %q: %v", id, err)
		}
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		item, ok := q.Dequeue(ctx)
		if !ok || item.NotificationID != want {
			t.Fatalf("got (%v, %v), want %q", item, ok, want)
		}
	}
}

func TestDeliveryQueue_EnqueueFullReturnsErrQueueFull(t *testing.T) {
	q := queue.New(1)
	if err := q.Enqueue(queue.Item{NotificationID: "n1"}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := q.Enqueue(queue.Item{NotificationID: "n2"}); err != domain.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDeliveryQueue_DequeueCancellation(t *testing.T) {
	q := queue.New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Dequeue(ctx)
	if ok {
		t.Fatal("expected ok=false on cancellation")
	}
}

func TestDeliveryQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := queue.New(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := q.Enqueue(queue.Item{NotificationID: "x"}); err == nil {
					return
				}
			}
		}()
	}

	results := make(chan struct{}, n)
	var consumerWg sync.WaitGroup
	for i := 0; i < 4; i++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				item, ok := q.Dequeue(ctx)
				if !ok {
					return
				}
				_ = item
				results <- struct{}{}
			}
		}()
	}

	wg.Wait()
	received := 0
	for received < n {
		<-results
		received++
	}
	cancel()
	consumerWg.Wait()
}

func TestDeliveryQueue_Depth(t *testing.T) {
	q := queue.New(4)
	if d := q.Depth(); d != 0 {
		t.Fatalf("expected depth 0, got %d", d)
	}
	_ = q.Enqueue(queue.Item{NotificationID: "n1"})
	_ = q.Enqueue(queue.Item{NotificationID: "n2"})
	if d := q.Depth(); d != 2 {
		t.Fatalf("expected depth 2, got %d", d)
	}
}
