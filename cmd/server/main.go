package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/api"
	"github.com/dispatchkit/notifyd/internal/config"
	"github.com/dispatchkit/notifyd/internal/db"
	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/idempotency"
	"github.com/dispatchkit/notifyd/internal/metrics"
	"github.com/dispatchkit/notifyd/internal/provider"
	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/ratelimiter"
	"github.com/dispatchkit/notifyd/internal/repository"
	"github.com/dispatchkit/notifyd/internal/retry"
	"github.com/dispatchkit/notifyd/internal/scheduler"
	"github.com/dispatchkit/notifyd/internal/service"
	"github.com/dispatchkit/notifyd/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- idempotency store ----
	idemStore, err := idempotency.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer idemStore.Close() //nolint:errcheck

	// ---- repositories ----
	notifRepo := repository.NewPgNotificationRepository(pool)
	dlqRepo := repository.NewPgDLQRepository(pool)
	markerRepo := repository.NewPgRetryMarkerRepository(pool)

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New(cfg.RateLimitPerChannel * 4)
	limiter := ratelimiter.New(cfg.RateLimitPerChannel)

	// ---- provider registry ----
	registry := buildProviderRegistry(cfg, logger)

	// ---- services ----
	notifSvc := service.NewNotificationService(notifRepo, idemStore, q, cfg.IdempotencyTTL, logger)
	dlqSvc := service.NewDLQService(dlqRepo, notifRepo, logger)

	backoff := retry.BackoffConfig{
		BaseDelay:       cfg.BaseDelay,
		ExponentialBase: cfg.ExponentialBase,
		MaxDelay:        cfg.MaxDelay,
	}
	retryEngine := retry.NewEngine(notifRepo, markerRepo, dlqSvc, backoff, logger, m.OnRetryScheduled())

	// ---- background goroutines ----
	// Context for all background goroutines; cancelled on shutdown signal.
	bgCtx, cancelBG := context.WithCancel(ctx)
	defer cancelBG()

	onSent, onFailed := m.WorkerHooks()
	workerPool := worker.NewPool(cfg.WorkerCount, q, notifRepo, registry, retryEngine, limiter, cfg.ProviderSendTimeout, logger, worker.MetricHooks{
		OnSent:   onSent,
		OnFailed: onFailed,
	})
	workerPool.Start(bgCtx)

	sched := scheduler.New(
		notifRepo, markerRepo, q, dlqSvc.Stats,
		cfg.SchedulerInterval, cfg.DLQAlertInterval, cfg.RetryCleanupInterval, cfg.RetryMarkerMaxAge,
		cfg.SchedulerBatchSize, logger, m.SampleDLQUnresolved,
	)
	go sched.Run(bgCtx)

	go sampleQueueDepth(bgCtx, q, m)

	// ---- HTTP server ----
	router := api.NewRouter(notifSvc, dlqSvc, q, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the worker pool and scheduler to stop.
	cancelBG()

	// 3. Wait for in-flight workers to finish their current message.
	workerPool.Wait()

	logger.Info("server stopped cleanly")
}

// buildProviderRegistry registers an SMTP adapter per configured email
// provider, one SMS adapter, one FCM adapter, and always registers the
// LOCAL fallback so every channel has at least one reachable provider.
func buildProviderRegistry(cfg *config.Config, logger *zap.Logger) *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register(domain.ProviderLocal, provider.NewLocalProvider(logger))

	switch cfg.SMTPProvider {
	case "gmail":
		reg.Register(domain.ProviderGmail, provider.NewGmailProvider(cfg.GmailEmail, cfg.GmailAppPassword))
	case "outlook":
		reg.Register(domain.ProviderOutlook, provider.NewOutlookProvider(cfg.OutlookEmail, cfg.OutlookPassword))
	case "custom":
		reg.Register(domain.ProviderCustomSMTP, provider.NewSMTPProvider(string(domain.ProviderCustomSMTP), provider.SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUsername, Password: cfg.SMTPPassword,
			From: cfg.SMTPFromEmail, UseTLS: cfg.SMTPUseTLS, Timeout: cfg.ProviderSendTimeout,
		}))
	}

	switch cfg.SMSProvider {
	case "textbelt":
		reg.Register(domain.ProviderTextbelt, provider.NewTextbeltProvider(cfg.TextbeltAPIKey, cfg.ProviderSendTimeout))
	default:
		reg.Register(domain.ProviderConsoleSMS, provider.NewConsoleSMSProvider(logger))
	}

	if cfg.FCMServerKey != "" {
		reg.Register(domain.ProviderFCM, provider.NewFCMProvider(cfg.FCMServerKey, cfg.ProviderSendTimeout))
	}

	return reg
}

// sampleQueueDepth periodically mirrors the queue's buffered-channel length
// into the Prometheus gauge; the queue itself is a plain channel with no
// observer hook, so sampling on a short tick is the cheapest way to expose
// it without adding synchronization to the hot Enqueue/Dequeue path.
func sampleQueueDepth(ctx context.Context, q *queue.DeliveryQueue, m *metrics.Metrics) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SampleQueueDepth(q.Depth())
		}
	}
}
