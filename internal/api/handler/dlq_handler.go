package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/service"
)

// DLQHandler exposes operator actions over the dead-letter queue (C9).
type DLQHandler struct {
	svc    *service.DLQService
	logger *zap.Logger
}

func NewDLQHandler(svc *service.DLQService, logger *zap.Logger) *DLQHandler {
	return &DLQHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/dlq
//
// @Summary  List dead-letter queue entries
// @Tags     dlq
// @Produce  json
// @Param    resolved  query     bool  false  "Filter by resolved state"
// @Param    page      query     int   false  "Page number (default 1)"
// @Param    limit     query     int   false  "Items per page (default 20, max 100)"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/dlq [get]
func (h *DLQHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var resolved *bool
	if rs := q.Get("resolved"); rs != "" {
		if b, err := strconv.ParseBool(rs); err == nil {
			resolved = &b
		}
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	limit := domain.ClampLimit(mustAtoi(q.Get("limit")))
	offset := (page - 1) * limit

	entries, total, err := h.svc.List(r.Context(), resolved, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dlq entries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Stats handles GET /api/v1/dlq/stats
//
// @Summary  Dead-letter queue summary counts
// @Tags     dlq
// @Produce  json
// @Success  200  {object}  domain.DLQStats
// @Router   /api/v1/dlq/stats [get]
func (h *DLQHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dlq stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type resolveRequest struct {
	ResolvedBy *string `json:"resolved_by,omitempty"`
}

// Retry handles POST /api/v1/dlq/{id}/retry
//
// @Summary  Resurrect a dead-lettered notification back to PENDING
// @Tags     dlq
// @Produce  json
// @Param    id   path      string  true  "DLQ entry UUID"
// @Success  200  {object}  domain.Notification
// @Failure  404  {object}  map[string]string
// @Failure  400  {object}  map[string]string
// @Router   /api/v1/dlq/{id}/retry [post]
func (h *DLQHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.svc.RetryFromDLQ(r.Context(), id)
	if err != nil {
		h.logger.Warn("dlq retry failed", zap.String("dlq_id", id), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// Resolve handles POST /api/v1/dlq/{id}/resolve
//
// @Summary  Mark a dead-lettered entry resolved without retrying it
// @Tags     dlq
// @Accept   json
// @Param    id    path  string          true  "DLQ entry UUID"
// @Param    body  body  resolveRequest  false "Optional operator identity"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/dlq/{id}/resolve [post]
func (h *DLQHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req resolveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.svc.ResolveDLQ(r.Context(), id, req.ResolvedBy); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
