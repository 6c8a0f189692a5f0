package orchestrators

import (
	"context"
	"log/slog"

	"gymtrack/internal/domain/audit"
)

// AuditRecorder stores audit events. A nil recorder disables auditing.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// recordAudit saves e. Failures are logged and never fail the operation
// that caused the event.
func recordAudit(ctx context.Context, r AuditRecorder, e audit.Event) {
	if r == nil {
		return
	}
	if err := r.Save(ctx, e); err != nil {
		slog.Error("audit_record_failed",
			"category", e.Category,
			"action", e.Action,
			"actor", e.Actor,
			"error", err,
		)
	}
}
