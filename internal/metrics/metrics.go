package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	NotificationLatency *prometheus.HistogramVec
	QueueDepth          prometheus.Gauge
	DLQUnresolved       prometheus.Gauge
	RetriesScheduled    *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of failed delivery attempts, whether rescheduled or dead-lettered.",
		}, []string{"channel"}),

		NotificationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_processing_seconds",
			Help:    "Duration of the provider send call for successfully delivered notifications.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Current number of items buffered in the delivery queue.",
		}),

		DLQUnresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dlq_unresolved_entries",
			Help: "Current number of unresolved dead-letter queue entries.",
		}),

		RetriesScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_retries_scheduled_total",
			Help: "Total number of retry attempts scheduled after a failed delivery.",
		}, []string{"channel"}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationLatency,
		m.QueueDepth,
		m.DLQUnresolved,
		m.RetriesScheduled,
	)

	return m
}

// SampleQueueDepth is called periodically by main to keep the gauge
// current; depth is read directly off the queue's buffered channel length.
func (m *Metrics) SampleQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// SampleDLQUnresolved mirrors DLQService.Stats().Unresolved into the gauge.
func (m *Metrics) SampleDLQUnresolved(unresolved int) {
	m.DLQUnresolved.Set(float64(unresolved))
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so worker.go does not import prometheus.
func (m *Metrics) WorkerHooks() (
	onSent func(domain.Channel, time.Duration),
	onFailed func(domain.Channel),
) {
	onSent = func(ch domain.Channel, latency time.Duration) {
		m.NotificationsSent.WithLabelValues(string(ch)).Inc()
		m.NotificationLatency.WithLabelValues(string(ch)).Observe(latency.Seconds())
	}
	onFailed = func(ch domain.Channel) {
		m.NotificationsFailed.WithLabelValues(string(ch)).Inc()
	}
	return
}

// OnRetryScheduled returns the callback wired into retry.Engine to count
// rescheduled attempts per channel.
func (m *Metrics) OnRetryScheduled() func(domain.Channel) {
	return func(ch domain.Channel) {
		m.RetriesScheduled.WithLabelValues(string(ch)).Inc()
	}
}
