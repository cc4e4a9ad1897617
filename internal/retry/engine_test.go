package retry_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/retry"
)

// fakeDLQMover records MoveToDLQ calls without a real DLQ repository, so
// the engine's retry-vs-DLQ decision can be tested in isolation.
type fakeDLQMover struct {
	moved []string
}

func (f *fakeDLQMover) MoveToDLQ(_ context.Context, notificationID, reason, errMsg string) error {
	f.moved = append(f.moved, notificationID)
	return nil
}

func backoffConfig() retry.BackoffConfig {
	return retry.BackoffConfig{BaseDelay: 100 * time.Millisecond, ExponentialBase: 2, MaxDelay: 10 * time.Second}
}

func TestBackoffConfig_NoJitterDelay_Monotonic(t *testing.T) {
	c := backoffConfig()
	prev := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		d := c.NoJitterDelay(attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestBackoffConfig_NoJitterDelay_CapsAtMaxDelay(t *testing.T) {
	c := backoffConfig()
	d := c.NoJitterDelay(30)
	if d != c.MaxDelay {
		t.Fatalf("expected delay capped at max_delay=%v, got %v", c.MaxDelay, d)
	}
}

func TestEngine_ScheduleRetry_ReschedulesWhenBudgetRemains(t *testing.T) {
	notifRepo := repository.NewMockNotificationRepository()
	markerRepo := repository.NewMockRetryMarkerRepository()
	dlq := &fakeDLQMover{}
	engine := retry.NewEngine(notifRepo, markerRepo, dlq, backoffConfig(), zap.NewNop(), nil)

	n := &domain.Notification{
		ID: "n1", UserID: "u1", Channel: domain.ChannelEmail, Provider: domain.ProviderLocal,
		Payload: "{}", Status: domain.StatusPending, MaxRetries: 5, AttemptCount: 2,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := notifRepo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := engine.ScheduleRetry(context.Background(), n, "timeout"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := notifRepo.GetByID(context.Background(), n.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if got.SendAt == nil || !got.SendAt.After(time.Now()) {
		t.Fatal("expected a future send_at to be set")
	}
	if len(dlq.moved) != 0 {
		t.Fatal("expected no dlq hand-off while retry budget remains")
	}
}

func TestEngine_ScheduleRetry_MovesToDLQAtMaxRetries(t *testing.T) {
	notifRepo := repository.NewMockNotificationRepository()
	markerRepo := repository.NewMockRetryMarkerRepository()
	dlq := &fakeDLQMover{}
	engine := retry.NewEngine(notifRepo, markerRepo, dlq, backoffConfig(), zap.NewNop(), nil)

	n := &domain.Notification{
		ID: "n2", UserID: "u1", Channel: domain.ChannelEmail, Provider: domain.ProviderLocal,
		Payload: "{}", Status: domain.StatusPending, MaxRetries: 3, AttemptCount: 3,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := notifRepo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := engine.ScheduleRetry(context.Background(), n, "exhausted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dlq.moved) != 1 || dlq.moved[0] != n.ID {
		t.Fatalf("expected notification handed to dlq, got %v", dlq.moved)
	}
}

func TestEngine_NonRetryable_BypassesBackoff(t *testing.T) {
	notifRepo := repository.NewMockNotificationRepository()
	markerRepo := repository.NewMockRetryMarkerRepository()
	dlq := &fakeDLQMover{}
	engine := retry.NewEngine(notifRepo, markerRepo, dlq, backoffConfig(), zap.NewNop(), nil)

	n := &domain.Notification{
		ID: "n3", UserID: "u1", Channel: domain.ChannelSMS, Provider: domain.ProviderLocal,
		Payload: "{}", Status: domain.StatusPending, MaxRetries: 5, AttemptCount: 1,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := notifRepo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := engine.NonRetryable(context.Background(), n, domain.ReasonNonRetryableProvider, "bad payload"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dlq.moved) != 1 {
		t.Fatalf("expected immediate dlq hand-off, got %v", dlq.moved)
	}
}
