package fitauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittude/fitauth/internal/rate"
)

// Decision reports one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Admit counts one request for identity against the shared window.
//
// A rejected request returns its Decision together with
// [ErrRequestLimitExceeded] so callers can still emit retry hints. Store
// failures return [ErrCounterStoreUnavailable] and never admit.
func (e *Engine) Admit(ctx context.Context, identity string) (Decision, error) {
	if e == nil || e.limiter == nil {
		return Decision{}, ErrEngineNotReady
	}

	d, err := e.limiter.Admit(ctx, identity)
	out := Decision{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		ResetAfter: d.ResetAfter,
	}

	switch {
	case err == nil:
		e.metricInc(MetricAdmitted)
		return out, nil
	case errors.Is(err, rate.ErrLimited):
		e.metricInc(MetricRateLimited)
		e.logger.Debug().Str("identity", identity).Dur("reset_after", d.ResetAfter).Msg("request limit exceeded")
		e.emitAudit(ctx, AuditRateLimited, false, "", "", reasonLimited)
		return out, ErrRequestLimitExceeded
	default:
		e.metricInc(MetricCounterStoreError)
		e.logger.Error().Err(err).Str("identity", identity).Msg("admission check failed")
		return Decision{}, fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
	}
}
