package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/provider"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/ratelimiter"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/worker"
)

// fakeProvider lets each test script an exact Outcome/error without hitting
// a real transport.
type fakeProvider struct {
	name    string
	outcome *provider.Outcome
	err     error
	panic   bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Send(_ context.Context, _ *domain.Notification) (*provider.Outcome, error) {
	if p.panic {
		panic("adapter blew up")
	}
	return p.outcome, p.err
}

// fakeRetryHandler records which path the worker invoked instead of
// exercising the real retry.Engine, isolating the worker's own decisions.
type fakeRetryHandler struct {
	scheduled    []string
	nonRetryable []string
}

func (f *fakeRetryHandler) ScheduleRetry(_ context.Context, n *domain.Notification, _ string) error {
	f.scheduled = append(f.scheduled, n.ID)
	return nil
}

func (f *fakeRetryHandler) NonRetryable(_ context.Context, n *domain.Notification, _, _ string) error {
	f.nonRetryable = append(f.nonRetryable, n.ID)
	return nil
}

func seed(t *testing.T, repo *repository.MockNotificationRepository, status domain.Status, providerName domain.Provider) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		ID: "n1", UserID: "u1", Channel: domain.ChannelEmail, Provider: providerName,
		Payload: `{"to":"a@b.com","subject":"s","body":"b"}`, Status: status, MaxRetries: 5,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return n
}

func newTestWorker(repo *repository.MockNotificationRepository, reg *provider.Registry, rh worker.RetryHandler) *worker.Worker {
	q := queue.New(1)
	limiter := ratelimiter.New(1000)
	return worker.NewWorker(0, q, repo, reg, rh, limiter, time.Second, zap.NewNop(), worker.MetricHooks{})
}

func TestWorker_Process_SuccessMarksSent(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusPending, domain.ProviderLocal)

	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, &fakeProvider{name: "local", outcome: &provider.Outcome{Success: true}})
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	got, _ := repo.GetByID(context.Background(), n.ID)
	if got.Status != domain.StatusSent {
		t.Fatalf("expected SENT, got %s", got.Status)
	}
	if got.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", got.AttemptCount)
	}
}

func TestWorker_Process_RetryableFailureSchedulesRetry(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusPending, domain.ProviderLocal)

	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, &fakeProvider{name: "local", outcome: &provider.Outcome{Success: false, Retryable: true, Message: "timeout"}})
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	if len(rh.scheduled) != 1 {
		t.Fatalf("expected a scheduled retry, got %v", rh.scheduled)
	}
	if len(rh.nonRetryable) != 0 {
		t.Fatal("did not expect a non-retryable hand-off")
	}
}

func TestWorker_Process_NonRetryableFailureGoesToDLQPath(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusPending, domain.ProviderLocal)

	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, &fakeProvider{name: "local", outcome: &provider.Outcome{Success: false, Retryable: false, Message: "bad payload"}})
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	if len(rh.nonRetryable) != 1 {
		t.Fatalf("expected non-retryable hand-off, got %v", rh.nonRetryable)
	}
}

func TestWorker_Process_TerminalStatusIsNoOp(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusSent, domain.ProviderLocal)

	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, &fakeProvider{name: "local", outcome: &provider.Outcome{Success: true}})
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	got, _ := repo.GetByID(context.Background(), n.ID)
	if got.AttemptCount != 0 {
		t.Fatalf("expected an already-terminal notification to be left untouched, got attempt_count=%d", got.AttemptCount)
	}
}

func TestWorker_Process_UnconfiguredProviderIsNonRetryable(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusPending, domain.ProviderFCM)

	reg := provider.NewRegistry() // nothing registered for FCM
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	if len(rh.nonRetryable) != 1 {
		t.Fatalf("expected non-retryable hand-off for missing adapter, got %v", rh.nonRetryable)
	}
}

func TestWorker_Process_AdapterPanicBecomesRetryableTransportError(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	n := seed(t, repo, domain.StatusPending, domain.ProviderLocal)

	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, &fakeProvider{name: "local", panic: true})
	rh := &fakeRetryHandler{}

	w := newTestWorker(repo, reg, rh)
	w.ProcessForTest(context.Background(), queue.Item{NotificationID: n.ID, Action: queue.ActionSend})

	if len(rh.scheduled) != 1 {
		t.Fatalf("expected the panic to surface as a retryable failure, got scheduled=%v nonRetryable=%v", rh.scheduled, rh.nonRetryable)
	}
}

var _ = errors.New // keep errors imported for table-driven expansion
