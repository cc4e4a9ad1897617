package domain

import "time"

// Channel is the delivery channel for a notification.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Provider identifies the adapter that will carry out delivery. Requests
// name a provider explicitly; the registry resolves it to an adapter
// instance at dispatch time.
type Provider string

const (
	ProviderGmail      Provider = "GMAIL"
	ProviderOutlook    Provider = "OUTLOOK"
	ProviderCustomSMTP Provider = "CUSTOM_SMTP"
	ProviderTextbelt   Provider = "TEXTBELT"
	ProviderConsoleSMS Provider = "CONSOLE_SMS"
	ProviderFCM        Provider = "FCM"
	ProviderLocal      Provider = "LOCAL"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderGmail, ProviderOutlook, ProviderCustomSMTP, ProviderTextbelt, ProviderConsoleSMS, ProviderFCM, ProviderLocal:
		return true
	}
	return false
}

// Status tracks the lifecycle of a notification. Only four states exist;
// PENDING is re-entered by the retry engine rather than introducing a
// separate "retrying" state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Notification is the core domain entity.
type Notification struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	IdempotencyKey   string     `json:"idempotency_key"`
	Channel          Channel    `json:"message_type"`
	Provider         Provider   `json:"provider"`
	Payload          string     `json:"payload"`
	Status           Status     `json:"status"`
	AttemptCount     int        `json:"attempt_count"`
	MaxRetries       int        `json:"max_retries"`
	SendAt           *time.Time `json:"send_at,omitempty"`
	LastAttemptedAt  *time.Time `json:"last_attempted_at,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	ProviderResponse *string    `json:"provider_response,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DefaultMaxRetries is applied when a create request omits max_retries.
const DefaultMaxRetries = 5

// CreateNotificationRequest is the inbound payload for a single notification.
type CreateNotificationRequest struct {
	UserID         string     `json:"user_id"`
	Channel        Channel    `json:"message_type"`
	Provider       Provider   `json:"provider"`
	Payload        string     `json:"payload"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	SendAt         *time.Time `json:"send_at,omitempty"`
	MaxRetries     *int       `json:"max_retries,omitempty"`
}

func (r *CreateNotificationRequest) Validate() error {
	if r.UserID == "" {
		return ErrInvalidUserID
	}
	if !r.Channel.IsValid() {
		return ErrInvalidChannel
	}
	if !r.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if r.Payload == "" {
		return ErrInvalidPayload
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	return nil
}

// CreateBatchRequest wraps a slice of notification requests. BulkCreate
// folds over these independently; there is no atomicity across items.
type CreateBatchRequest struct {
	Notifications []CreateNotificationRequest `json:"notifications"`
}

// BulkCreateResult pairs each input item with its outcome, in input order.
type BulkCreateResult struct {
	Notification *Notification `json:"notification,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ListFilter holds query parameters for paginated notification listing.
type ListFilter struct {
	UserID  *string
	Status  *Status
	Channel *Channel
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

// ClampLimit normalizes a caller-supplied page size to [1, 100], defaulting
// to 20 when out of range.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

// ClampOffset normalizes a caller-supplied offset to a non-negative value.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
