package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/idempotency"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/service"
)

func newService() (*service.NotificationService, *repository.MockNotificationRepository, *idempotency.MockStore, *queue.DeliveryQueue) {
	repo := repository.NewMockNotificationRepository()
	idem := idempotency.NewMockStore()
	q := queue.New(10)
	svc := service.NewNotificationService(repo, idem, q, time.Hour, zap.NewNop())
	return svc, repo, idem, q
}

var validReq = domain.CreateNotificationRequest{
	UserID:   "user-1",
	Channel:  domain.ChannelSMS,
	Provider: domain.ProviderConsoleSMS,
	Payload:  `{"to":"+905551234567","body":"hi"}`,
}

func TestNotificationService_Create(t *testing.T) {
	svc, _, _, q := newService()
	ctx := context.Background()

	n, err := svc.Create(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected a non-empty ID")
	}
	if n.Status != domain.StatusPending {
		t.Fatalf("expected status=PENDING, got %s", n.Status)
	}
	if q.Depth() == 0 {
		t.Fatal("expected item to be enqueued for immediate delivery")
	}
}

func TestNotificationService_Create_InvalidRequest(t *testing.T) {
	svc, _, _, _ := newService()

	bad := validReq
	bad.Channel = "FAX"
	_, err := svc.Create(context.Background(), bad)
	if err != domain.ErrInvalidChannel {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}
}

func TestNotificationService_Create_DeferredNotEnqueued(t *testing.T) {
	svc, _, _, q := newService()

	future := time.Now().Add(time.Hour)
	req := validReq
	req.SendAt = &future

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Depth() != 0 {
		t.Fatal("expected a future send_at to be left for the scheduler, not enqueued immediately")
	}
}

func TestNotificationService_Create_DuplicateKeyRejected(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	key := "idem-key-123"
	req := validReq
	req.IdempotencyKey = key

	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("first call: unexpected error: %v", err)
	}

	_, err := svc.Create(ctx, req)
	if err != domain.ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey on repeated idempotency key, got %v", err)
	}
}

func TestNotificationService_Create_StoreUnavailable(t *testing.T) {
	svc, _, idem, _ := newService()
	idem.ReserveErr = context.DeadlineExceeded

	_, err := svc.Create(context.Background(), validReq)
	if err == nil {
		t.Fatal("expected an error when the idempotency store is unavailable")
	}
}

func TestNotificationService_BulkCreate(t *testing.T) {
	svc, _, _, _ := newService()

	requests := make([]domain.CreateNotificationRequest, 5)
	for i := range requests {
		requests[i] = validReq
	}

	results := svc.BulkCreate(context.Background(), requests)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Error != "" {
			t.Fatalf("result %d: unexpected error: %s", i, r.Error)
		}
	}
}

func TestNotificationService_BulkCreate_PartialFailureDoesNotBlockOthers(t *testing.T) {
	svc, _, _, _ := newService()

	requests := []domain.CreateNotificationRequest{validReq, {Channel: "BAD"}, validReq}
	results := svc.BulkCreate(context.Background(), requests)

	if results[0].Error != "" || results[2].Error != "" {
		t.Fatal("expected the two valid requests to succeed")
	}
	if results[1].Error == "" {
		t.Fatal("expected the invalid request to fail")
	}
}

func TestNotificationService_Cancel_Pending(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)
	if err := svc.Cancel(ctx, n.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := svc.GetByID(ctx, n.ID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.Status)
	}
}

func TestNotificationService_Cancel_AlreadySent(t *testing.T) {
	svc, repo, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)
	if err := repo.MarkSent(ctx, n.ID, "", time.Now()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.Cancel(ctx, n.ID); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestNotificationService_Cancel_NotFound(t *testing.T) {
	svc, _, _, _ := newService()
	err := svc.Cancel(context.Background(), "nonexistent-id")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationService_GetByID(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)

	got, err := svc.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != n.ID {
		t.Fatalf("expected id=%s, got %s", n.ID, got.ID)
	}
}

func TestNotificationService_GetByID_NotFound(t *testing.T) {
	svc, _, _, _ := newService()
	_, err := svc.GetByID(context.Background(), "does-not-exist")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationService_List(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, validReq); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	results, total, err := svc.List(ctx, domain.ListFilter{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(results) != 3 {
		t.Fatalf("expected 3 notifications, got total=%d len=%d", total, len(results))
	}
}
