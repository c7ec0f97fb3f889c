package fitauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricValidateSuccess)

	if got := m.Value(MetricValidateSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricAdmitted)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricAdmitted) != 0 || m.Enabled() {
		t.Fatal("nil metrics must read as zero and disabled")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRenewSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRenewSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}
	// Only the validate histogram exists.
	m.Observe(MetricAdmitted, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRateLimited)
	m.Inc(MetricAdmitted)
	m.Inc(MetricAdmitted)

	snap := m.Snapshot()
	if snap.Counters[MetricAdmitted] != 2 {
		t.Fatalf("expected MetricAdmitted=2 got %d", snap.Counters[MetricAdmitted])
	}
	if snap.Counters[MetricRateLimited] != 1 {
		t.Fatalf("expected MetricRateLimited=1 got %d", snap.Counters[MetricRateLimited])
	}
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatal("latency id must not appear as a counter")
	}
	if _, ok := snap.Histograms[MetricValidateLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}
