package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate: idempotency key already reserved")
	ErrInvalidUserID      = errors.New("user_id must not be empty")
	ErrInvalidChannel     = errors.New("invalid message_type: must be EMAIL, SMS, or PUSH")
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrInvalidPayload     = errors.New("payload must not be empty")
	ErrInvalidMaxRetries  = errors.New("max_retries must not be negative")
	ErrBatchTooLarge      = errors.New("batch exceeds maximum of 1000 notifications")
	ErrBatchEmpty         = errors.New("batch must contain at least one notification")
	ErrInvalidTransition  = errors.New("notification cannot transition from its current status")
	ErrQueueFull          = errors.New("queue is at capacity, try again later")
	ErrStoreUnavailable   = errors.New("idempotency store unavailable")
	ErrProviderUnconfigured = errors.New("no adapter registered for requested provider")
	ErrDLQEntryExists     = errors.New("conflict: dlq entry already exists for notification")
	ErrDLQAlreadyResolved = errors.New("dlq entry already resolved")
)
