package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps any failure to reach or use the backing store.
var ErrUnavailable = errors.New("counter store unavailable")

// Window is the state of one counter after a Hit.
type Window struct {
	// Count is the counter value after the hit. Rejected hits leave it unchanged.
	Count int64
	// TTL is the remaining lifetime of the window.
	TTL time.Duration
	// Allowed reports whether the hit was counted.
	Allowed bool
}

// CounterStore is the shared counter primitive behind admission control.
//
// Hit atomically performs: if key is absent, create it with count 1 and the
// given window as TTL and allow; if the count is already >= limit, reject
// without modifying it; otherwise increment and allow. The TTL set at creation
// is never extended.
type CounterStore interface {
	Hit(ctx context.Context, key string, limit int64, window time.Duration) (Window, error)
}

func validateHit(key string, limit int64, window time.Duration) error {
	if key == "" {
		return errors.New("empty counter key")
	}
	if limit <= 0 {
		return errors.New("counter limit must be > 0")
	}
	if window < time.Millisecond {
		return errors.New("counter window must be >= 1ms")
	}
	return nil
}
