package projections

import (
	"context"
	"time"

	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

// MemberLister is the member store view the projections read from.
type MemberLister interface {
	List(ctx context.Context) ([]member.Record, error)
}

// today resolves the current calendar date in loc.
func today(c clock.Clock, loc *time.Location) time.Time {
	if c == nil {
		c = clock.NewSystemClock()
	}
	return membership.Today(c.Now(), loc)
}
