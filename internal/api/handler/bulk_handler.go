package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
	"github.com/dispatchkit/notifyd/internal/service"
)

// BulkHandler handles the bulk-create endpoint.
type BulkHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewBulkHandler(svc *service.NotificationService, logger *zap.Logger) *BulkHandler {
	return &BulkHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/notifications/bulk
//
// @Summary  Create up to 1000 notifications in a single request
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.CreateBatchRequest  true  "Bulk payload"
// @Success  201   {object}  map[string]any
// @Failure  400   {object}  map[string]string
// @Router   /api/v1/notifications/bulk [post]
func (h *BulkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Notifications) == 0 {
		mapError(w, domain.ErrBatchEmpty)
		return
	}
	if len(req.Notifications) > 1000 {
		mapError(w, domain.ErrBatchTooLarge)
		return
	}

	results := h.svc.BulkCreate(r.Context(), req.Notifications)

	succeeded := 0
	for _, res := range results {
		if res.Error == "" {
			succeeded++
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"results":   results,
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}
