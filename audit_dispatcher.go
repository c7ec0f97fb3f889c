package fitauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands events to the sink on a single worker goroutine, so
// request paths never wait on sink I/O. A nil dispatcher drops everything.
//
// Lost events are counted both locally and as MetricAuditDropped.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	dropIfFull bool
	metrics    *Metrics
	dropped    atomic.Uint64

	// mu orders sends against close(queue).
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		dropIfFull: cfg.DropIfFull,
		metrics:    metrics,
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

// run exits once the queue is closed and empty.
func (d *auditDispatcher) run() {
	defer close(d.stopped)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. A full queue drops it under DropIfFull; otherwise Emit
// waits for space or for ctx to end, and a ctx that ends first drops it.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop()
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop()
	}
}

func (d *auditDispatcher) drop() {
	d.dropped.Add(1)
	d.metrics.Inc(MetricAuditDropped)
}

// Close stops intake and returns after the worker has delivered every queued
// event. It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
