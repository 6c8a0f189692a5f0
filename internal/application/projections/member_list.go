package projections

import (
	"context"
	"sort"
	"strings"
	"time"

	"gymtrack/internal/domain/member"
	"gymtrack/internal/platform/clock"
)

// MemberListQuery carries query parameters.
type MemberListQuery struct {
	Query      string // case-insensitive substring of name or phone
	WindowDays int    // used to classify rows as expiring
}

// MemberRow is one member with derived expiry information.
type MemberRow struct {
	member.Record
	DaysLeft  int
	HasExpiry bool
	Status    string
}

// MemberListResult carries the query result.
type MemberListResult struct {
	Today   time.Time
	Total   int // members in the store before filtering
	Members []MemberRow
}

// MemberListDeps holds dependencies for QueryMemberList.
type MemberListDeps struct {
	MemberStore MemberLister
	Clock       clock.Clock
	Location    *time.Location
}

// QueryMemberList returns members matching the query, sorted by name.
// PRE: deps.MemberStore is set
// POST: Members is sorted by name (case-insensitive), then ID
// INVARIANT: records are returned unmodified
func QueryMemberList(ctx context.Context, query MemberListQuery, deps MemberListDeps) (MemberListResult, error) {
	records, err := deps.MemberStore.List(ctx)
	if err != nil {
		return MemberListResult{}, err
	}
	now := today(deps.Clock, deps.Location)

	result := MemberListResult{Today: now, Total: len(records)}
	for _, rec := range records {
		if !rec.MatchesQuery(query.Query) {
			continue
		}
		days, ok := rec.DaysRemaining(now)
		result.Members = append(result.Members, MemberRow{
			Record:    rec,
			DaysLeft:  days,
			HasExpiry: ok,
			Status:    rec.Status(now, query.WindowDays),
		})
	}

	sort.SliceStable(result.Members, func(i, j int) bool {
		a, b := strings.ToLower(result.Members[i].Name), strings.ToLower(result.Members[j].Name)
		if a != b {
			return a < b
		}
		return result.Members[i].ID < result.Members[j].ID
	})
	return result, nil
}
