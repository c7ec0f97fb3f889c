package fitauth

import (
	"time"

	"github.com/fittude/fitauth/clock"
	"github.com/fittude/fitauth/internal/rate"
	"github.com/fittude/fitauth/jwt"
	"github.com/rs/zerolog"
)

// Engine defines a public type used by fitauth APIs.
//
// An Engine holds no per-subject state. Any number of Engines built from the
// same Config validate and renew each other's credentials.
type Engine struct {
	config  Config
	codec   *jwt.Codec
	limiter *rate.Limiter
	clock   clock.Clock
	logger  zerolog.Logger
	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded on a full buffer
// or an ended context.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counter table for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// SessionTTL is the lifetime of every session credential.
func (e *Engine) SessionTTL() time.Duration {
	return e.config.JWT.SessionTTL
}

// CookieName is the name of the refresh cookie.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}
