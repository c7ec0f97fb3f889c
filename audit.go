package fitauth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Audit event types emitted by the Engine.
const (
	AuditCredentialIssued  = "credential_issued"
	AuditCredentialRenewed = "credential_renewed"
	AuditRenewFailed       = "renew_failed"
	AuditValidateFailed    = "validate_failed"
	AuditLogout            = "logout"
	AuditRateLimited       = "rate_limited"
)

// AuditEvent defines a public type used by fitauth APIs.
//
// AuditEvent values never carry raw credentials or signing secrets.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Subject   string    `json:"subject,omitempty"`
	Class     string    `json:"class,omitempty"`
	IP        string    `json:"ip,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel, mostly for tests and
// in-process consumers.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit implements [AuditSink]. It blocks until the event is accepted or ctx ends.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// LogSink writes each event as one structured zerolog line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a [LogSink] writing through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements [AuditSink].
func (s *LogSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}

	ev := s.logger.Info()
	if !event.Success {
		ev = s.logger.Warn()
	}
	ev.Str("component", "audit").
		Time("at", event.Timestamp).
		Str("event_type", event.EventType).
		Str("subject", event.Subject).
		Str("class", event.Class).
		Str("ip", event.IP).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Str("reason", event.Reason).
		Msg("audit")
}
