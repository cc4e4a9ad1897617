package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/service"
)

func newDLQService() (*service.DLQService, *repository.MockDLQRepository, *repository.MockNotificationRepository) {
	dlqRepo := repository.NewMockDLQRepository()
	notifRepo := repository.NewMockNotificationRepository()
	return service.NewDLQService(dlqRepo, notifRepo, zap.NewNop()), dlqRepo, notifRepo
}

func seedNotification(t *testing.T, repo *repository.MockNotificationRepository) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		ID:           "notif-1",
		UserID:       "user-1",
		Channel:      domain.ChannelEmail,
		Provider:     domain.ProviderLocal,
		Payload:      `{"to":"a@b.com","subject":"s","body":"b"}`,
		Status:       domain.StatusPending,
		MaxRetries:   3,
		AttemptCount: 3,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return n
}

func TestDLQService_MoveToDLQ(t *testing.T) {
	svc, dlqRepo, notifRepo := newDLQService()
	ctx := context.Background()
	n := seedNotification(t, notifRepo)

	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, "transport error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := notifRepo.GetByID(ctx, n.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected notification marked FAILED, got %s", got.Status)
	}

	stats, _ := dlqRepo.Stats(ctx)
	if stats.Unresolved != 1 {
		t.Fatalf("expected 1 unresolved dlq entry, got %d", stats.Unresolved)
	}
}

func TestDLQService_MoveToDLQ_DuplicateRejected(t *testing.T) {
	svc, _, notifRepo := newDLQService()
	ctx := context.Background()
	n := seedNotification(t, notifRepo)

	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, "second"); err != domain.ErrDLQEntryExists {
		t.Fatalf("expected ErrDLQEntryExists, got %v", err)
	}
}

func TestDLQService_RetryFromDLQ(t *testing.T) {
	svc, dlqRepo, notifRepo := newDLQService()
	ctx := context.Background()
	n := seedNotification(t, notifRepo)

	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, "failed"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	entries, _, _ := dlqRepo.List(ctx, nil, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 dlq entry, got %d", len(entries))
	}

	resurrected, err := svc.RetryFromDLQ(ctx, entries[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resurrected.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", resurrected.Status)
	}
	if resurrected.AttemptCount != 0 {
		t.Fatalf("expected attempt_count reset to 0, got %d", resurrected.AttemptCount)
	}

	stats, _ := dlqRepo.Stats(ctx)
	if stats.Resolved != 1 {
		t.Fatalf("expected the dlq entry to be resolved, got %d resolved", stats.Resolved)
	}
}

func TestDLQService_RetryFromDLQ_AlreadyResolved(t *testing.T) {
	svc, dlqRepo, notifRepo := newDLQService()
	ctx := context.Background()
	n := seedNotification(t, notifRepo)

	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonMaxRetriesExceeded, "failed"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	entries, _, _ := dlqRepo.List(ctx, nil, 10, 0)

	if _, err := svc.RetryFromDLQ(ctx, entries[0].ID); err != nil {
		t.Fatalf("first retry: %v", err)
	}
	if _, err := svc.RetryFromDLQ(ctx, entries[0].ID); err != domain.ErrDLQAlreadyResolved {
		t.Fatalf("expected ErrDLQAlreadyResolved, got %v", err)
	}
}

func TestDLQService_ResolveDLQ(t *testing.T) {
	svc, dlqRepo, notifRepo := newDLQService()
	ctx := context.Background()
	n := seedNotification(t, notifRepo)

	if err := svc.MoveToDLQ(ctx, n.ID, domain.ReasonNonRetryableProvider, "bad payload"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	entries, _, _ := dlqRepo.List(ctx, nil, 10, 0)

	operator := "ops@example.com"
	if err := svc.ResolveDLQ(ctx, entries[0].ID, &operator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := notifRepo.GetByID(ctx, n.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("resolving without retry must leave the notification FAILED, got %s", got.Status)
	}

	stats, _ := dlqRepo.Stats(ctx)
	if stats.Resolved != 1 {
		t.Fatalf("expected the entry resolved, got %d", stats.Resolved)
	}
}
