package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender is a no-op sender for development and testing.
// It logs sends but does not actually deliver anything.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the message but does not deliver it. The result is marked
// Simulated so callers do not record the reminder as delivered.
func (s *NoopSender) Send(_ context.Context, msg Message) (Result, error) {
	slog.Info("noop_send", "channel", msg.Channel, "to", msg.To, "subject", msg.Subject)
	return Result{
		ProviderID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:     time.Now(),
		Attempts:   1,
		Simulated:  true,
	}, nil
}
