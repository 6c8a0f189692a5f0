package projections

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	memberStore "gymtrack/internal/adapters/storage/member"
	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

// Skip reasons
const (
	SkipNoExpiry          = "no expiry date"
	SkipUnparseableExpiry = "expiry date could not be read"
)

// ExpiringQuery carries query parameters.
type ExpiringQuery struct {
	WindowDays int
}

// ExpiringMember is a member whose membership ends within the window.
type ExpiringMember struct {
	member.Record
	DaysLeft int
}

// SkippedMember is a record that could not be classified.
type SkippedMember struct {
	ID     string
	Name   string
	Phone  string
	Reason string
	Value  string // original cell text, when known
}

// ExpiringResult carries the query result.
type ExpiringResult struct {
	Today      time.Time
	WindowDays int
	Members    []ExpiringMember
	Skipped    []SkippedMember
}

// ExpiringDeps holds dependencies for QueryExpiringMembers.
type ExpiringDeps struct {
	MemberStore MemberLister
	Clock       clock.Clock
	Location    *time.Location
}

// QueryExpiringMembers selects members with 0 <= days left <= window.
// Records without a usable expiry date are returned in Skipped, never dropped.
// PRE: query.WindowDays >= 0
// POST: Members sorted by days left, then name
func QueryExpiringMembers(ctx context.Context, query ExpiringQuery, deps ExpiringDeps) (ExpiringResult, error) {
	records, err := deps.MemberStore.List(ctx)
	if err != nil {
		return ExpiringResult{}, err
	}
	now := today(deps.Clock, deps.Location)

	unparseable := map[string]string{}
	if r, ok := deps.MemberStore.(memberStore.Reporter); ok {
		for _, issue := range r.Report().Issues {
			if issue.Column == memberStore.ColEndDate {
				unparseable[issue.ID] = issue.Value
			}
		}
	}

	result := ExpiringResult{Today: now, WindowDays: query.WindowDays}
	for _, rec := range records {
		days, ok := rec.DaysRemaining(now)
		if !ok {
			skip := SkippedMember{ID: rec.ID, Name: rec.Name, Phone: rec.Phone, Reason: SkipNoExpiry}
			if v, bad := unparseable[rec.ID]; bad {
				skip.Reason = SkipUnparseableExpiry
				skip.Value = v
			}
			slog.Warn("expiry_unparseable", "member_id", rec.ID, "name", rec.Name, "reason", skip.Reason, "value", skip.Value)
			result.Skipped = append(result.Skipped, skip)
			continue
		}
		if membership.IsExpiringSoon(days, query.WindowDays) {
			result.Members = append(result.Members, ExpiringMember{Record: rec, DaysLeft: days})
		}
	}

	sort.SliceStable(result.Members, func(i, j int) bool {
		if result.Members[i].DaysLeft != result.Members[j].DaysLeft {
			return result.Members[i].DaysLeft < result.Members[j].DaysLeft
		}
		return strings.ToLower(result.Members[i].Name) < strings.ToLower(result.Members[j].Name)
	})
	return result, nil
}
