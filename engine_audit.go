package fitauth

import (
	"context"

	"github.com/fittude/fitauth/jwt"
)

// Audit reasons. They are stable strings so downstream alerting can match them.
const (
	reasonMissing   = "missing"
	reasonExpired   = "expired"
	reasonSignature = "signature"
	reasonMalformed = "malformed"
	reasonLimited   = "limit_exceeded"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, subject string, class jwt.Class, reason string) {
	if e == nil || e.audit == nil {
		return
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		Class:     string(class),
		IP:        clientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Reason:    reason,
	})
}
