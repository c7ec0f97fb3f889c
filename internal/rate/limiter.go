package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittude/fitauth/store"
)

// Config holds limiter tuning parameters. It is fixed for the limiter's lifetime.
type Config struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// Decision describes the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter admits or rejects requests per client identity.
type Limiter struct {
	store  store.CounterStore
	config Config
}

// New creates a [Limiter] backed by counters.
func New(counters store.CounterStore, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate_limit"
	}
	return &Limiter{
		store:  counters,
		config: cfg,
	}
}

// Admit counts one request for identity. It returns ErrLimited together with
// the rejecting decision when the window is exhausted.
func (l *Limiter) Admit(ctx context.Context, identity string) (Decision, error) {
	if !l.config.Enabled {
		return Decision{Allowed: true, Limit: l.config.MaxRequests, Remaining: l.config.MaxRequests}, nil
	}
	if identity == "" {
		identity = "unknown"
	}
	if l.store == nil {
		return Decision{}, fmt.Errorf("%w: no counter store configured", ErrStoreUnavailable)
	}

	w, err := l.store.Hit(ctx, key(l.config.KeyPrefix, identity), int64(l.config.MaxRequests), l.config.Window)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Decision{}, err
	}

	d := Decision{
		Allowed:    w.Allowed,
		Limit:      l.config.MaxRequests,
		Remaining:  remaining(l.config.MaxRequests, w.Count),
		ResetAfter: w.TTL,
	}
	if !w.Allowed {
		return d, ErrLimited
	}
	return d, nil
}

func key(prefix, identity string) string {
	return prefix + ":" + identity
}

func remaining(limit int, count int64) int {
	left := int64(limit) - count
	if left < 0 {
		return 0
	}
	return int(left)
}
