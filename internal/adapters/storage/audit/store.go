package audit

import (
	"context"

	domain "gymtrack/internal/domain/audit"
)

// DefaultListLimit bounds List when the filter has no limit.
const DefaultListLimit = 100

// Store persists audit events.
type Store interface {
	// Save persists an audit event.
	// PRE: event is valid
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events matching the filter.
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter) ([]domain.Event, error)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Category   domain.Category
	Actor      string
	ResourceID string
	Limit      int
}
