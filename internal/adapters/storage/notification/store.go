package notification

import (
	"context"
	"time"

	domain "gymtrack/internal/domain/notification"
)

// Store persists reminder delivery attempts.
type Store interface {
	Save(ctx context.Context, n domain.Notification) error
	// FindSent reports whether a reminder for this member, expiry date and
	// channel has already been delivered.
	FindSent(ctx context.Context, memberID string, expiry time.Time, channel string) (bool, error)
	// Claim stores n as pending unless the same reminder is already pending
	// or sent. It returns false when someone else holds the reminder.
	Claim(ctx context.Context, n domain.Notification) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Notification, error)
}
