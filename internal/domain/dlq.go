package domain

import "time"

// DLQ failure reason codes. Stored verbatim as free text; the worker and the
// retry engine only ever record one of these three.
const (
	ReasonMaxRetriesExceeded    = "max_retries_exceeded"
	ReasonNonRetryableProvider  = "non_retryable_provider_error"
	ReasonProviderUnconfigured  = "provider_unconfigured"
)

// RetryHistory is the serialized record stored alongside a DLQ entry. It
// exists purely for operator inspection; dispatch decisions never read it.
type RetryHistory struct {
	TotalAttempts    int        `json:"total_attempts"`
	LastError        string     `json:"last_error"`
	LastAttemptedAt  *time.Time `json:"last_attempted_at,omitempty"`
	FailureReason    string     `json:"failure_reason"`
}

// DLQEntry parks a notification that has exhausted retries or failed
// non-retryably, pending operator action.
type DLQEntry struct {
	ID             string       `json:"id"`
	NotificationID string       `json:"notification_id"`
	FailureReason  string       `json:"failure_reason"`
	RetryHistory   RetryHistory `json:"retry_history"`
	MovedToDLQAt   time.Time    `json:"moved_to_dlq_at"`
	Resolved       bool         `json:"resolved"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy     *string      `json:"resolved_by,omitempty"`
}

// DLQStats summarizes the state of the dead-letter queue for the admin
// endpoint and the periodic alert task.
type DLQStats struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
	Resolved   int `json:"resolved"`
}

// RetryMarker is the sidecar observability record described alongside the
// retry engine: one row per scheduled retry attempt, consulted only for
// operator visibility and age-based cleanup, never for dispatch decisions.
type RetryMarker struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	Attempt        int       `json:"attempt"`
	ScheduledFor   time.Time `json:"scheduled_for"`
	CreatedAt      time.Time `json:"created_at"`
}
