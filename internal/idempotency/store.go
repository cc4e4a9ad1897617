// Package idempotency provides the fail-closed idempotency reservation
// guard sitting in front of the notification store's unique constraint.
package idempotency

import (
	"context"
	"time"
)

// Store reserves idempotency keys atomically. Reserve reports whether the
// caller won the reservation: true means the key was previously unseen and
// is now held for ttl; false means a reservation already exists and the
// caller should treat this as a duplicate.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
