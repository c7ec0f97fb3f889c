package fitauth

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by fitauth APIs.
//
// MetricID values index the fixed counter table; exporters translate them
// to stable names.
type MetricID uint16

const (
	// MetricSessionIssued counts session credentials minted by login or renew.
	MetricSessionIssued MetricID = iota
	// MetricRefreshIssued counts refresh credentials minted at login.
	MetricRefreshIssued
	// MetricRenewSuccess counts refresh credentials exchanged for a session credential.
	MetricRenewSuccess
	// MetricRenewFailure counts rejected renew attempts of any kind.
	MetricRenewFailure
	// MetricValidateSuccess counts session credentials that verified.
	MetricValidateSuccess
	// MetricValidateExpired counts correctly signed credentials past expiry.
	MetricValidateExpired
	// MetricValidateTampered counts signature or class mismatches.
	MetricValidateTampered
	// MetricValidateUnknown counts credentials that could not be decoded.
	MetricValidateUnknown
	// MetricMissingCredential counts requests with no credential at all.
	MetricMissingCredential
	// MetricAdmitted counts requests passed by admission control.
	MetricAdmitted
	// MetricRateLimited counts requests rejected by admission control.
	MetricRateLimited
	// MetricCounterStoreError counts admission checks that could not reach the store.
	MetricCounterStoreError
	// MetricLogout counts refresh cookie deletions.
	MetricLogout
	// MetricAuditDropped counts audit events lost to a full buffer or an ended context.
	MetricAuditDropped
	// MetricValidateLatency indexes the validate latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free counter table. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a counter table honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram. Only MetricValidateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value reads counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Values are read individually, so the
// snapshot is not a consistent cut under concurrent updates.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

// HistogramBounds returns the inclusive upper bound of every bucket except
// the last, which is unbounded.
func HistogramBounds() []time.Duration {
	out := make([]time.Duration, len(histBounds))
	copy(out, histBounds[:])
	return out
}

var histBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range histBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
