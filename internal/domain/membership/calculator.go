package membership

import (
	"errors"
	"time"
)

// Policy selects how a plan's duration is added to a start date.
type Policy string

// Policy constants
const (
	// PolicyCalendar adds whole calendar months, clamped to the last day of
	// the target month (Jan 31 + 1 month = Feb 28/29).
	PolicyCalendar Policy = "calendar"
	// PolicyFixedDays adds 30/90/180/365 days regardless of month length.
	PolicyFixedDays Policy = "fixed"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyCalendar

// Status constants for a membership relative to today.
const (
	StatusActive   = "active"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
	StatusUnknown  = "unknown"
)

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("expiry policy must be 'calendar' or 'fixed'")

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCalendar, PolicyFixedDays:
		return Policy(s), nil
	case "":
		return DefaultPolicy, nil
	}
	return "", ErrUnknownPolicy
}

// Calculator maps plans to expiry dates under one explicit Policy.
type Calculator struct {
	Policy Policy
}

// NewCalculator creates a Calculator. An empty policy falls back to DefaultPolicy.
func NewCalculator(p Policy) Calculator {
	if p == "" {
		p = DefaultPolicy
	}
	return Calculator{Policy: p}
}

// ComputeExpiry returns the expiry date of a membership starting on start.
// PRE: start is non-zero
// POST: returned date >= Date(start) for every valid plan
func (c Calculator) ComputeExpiry(start time.Time, plan Plan) (time.Time, error) {
	if plan == PlanCustom {
		return time.Time{}, ErrCustomPlan
	}
	off, ok := planOffsets[plan]
	if !ok {
		return time.Time{}, ErrUnknownPlan
	}
	start = Date(start)
	if c.Policy == PolicyFixedDays {
		return start.AddDate(0, 0, off.days), nil
	}
	return addMonthsClamped(start, off.months), nil
}

// addMonthsClamped adds n months without spilling into the following month.
// time.AddDate normalises Jan 31 + 1 month to Mar 2; gyms expect Feb 28/29.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(firstOfTarget.Year(), firstOfTarget.Month())
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysRemaining returns whole calendar days from today until expiry.
// Negative means expired. Sub saturates for dates centuries apart,
// so the difference is taken in Unix seconds.
func DaysRemaining(expiry, today time.Time) int {
	return int((Date(expiry).Unix() - Date(today).Unix()) / 86400)
}

// IsExpiringSoon reports whether 0 <= daysRemaining <= window.
// Already-expired memberships are not "expiring soon".
func IsExpiringSoon(daysRemaining, window int) bool {
	return daysRemaining >= 0 && daysRemaining <= window
}

// Status classifies an expiry date relative to today and a lookahead window.
// A zero expiry yields StatusUnknown.
func Status(expiry, today time.Time, window int) string {
	if expiry.IsZero() {
		return StatusUnknown
	}
	days := DaysRemaining(expiry, today)
	switch {
	case days < 0:
		return StatusExpired
	case IsExpiringSoon(days, window):
		return StatusExpiring
	default:
		return StatusActive
	}
}
