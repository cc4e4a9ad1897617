package handler

import (
	"net/http"

	"github.com/dispatchkit/notifyd/internal/queue"
	"github.com/dispatchkit/notifyd/internal/service"
)

// MetricsHandler serves a human-readable JSON snapshot of queue depth and
// dead-letter queue state. Raw Prometheus instruments (counters,
// histograms) live at /metrics via promhttp.Handler and are separate from
// this endpoint.
type MetricsHandler struct {
	q   *queue.DeliveryQueue
	dlq *service.DLQService
}

func NewMetricsHandler(q *queue.DeliveryQueue, dlq *service.DLQService) *MetricsHandler {
	return &MetricsHandler{q: q, dlq: dlq}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth and DLQ snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dlq.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dlq stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": h.q.Depth(),
		"dlq":         stats,
	})
}
