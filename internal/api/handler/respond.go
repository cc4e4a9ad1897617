package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dispatchkit/notifyd/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mustAtoi parses a query parameter as an int, defaulting to 0 on a
// missing or malformed value; callers clamp the result themselves (e.g.
// domain.ClampLimit) so a bad input just falls back to the same default
// an empty one would.
func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// mapError translates domain sentinel errors to HTTP status codes, per
// §6.1/§7: validation failures, duplicate idempotency keys, and invalid
// state transitions are all reported as 400 rather than 409/422 — the
// reference architecture does not distinguish them by status code, only
// by the error body's message.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateKey):
		respondError(w, http.StatusBadRequest, "duplicate")
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDLQEntryExists),
		errors.Is(err, domain.ErrDLQAlreadyResolved),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidChannel),
		errors.Is(err, domain.ErrInvalidProvider),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidMaxRetries),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrBatchEmpty):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQueueFull):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
