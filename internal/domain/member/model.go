package member

import (
	"errors"
	"strings"
	"time"

	"gymtrack/internal/domain/membership"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxPhoneLength = 32
)

// Domain errors
var (
	ErrEmptyName         = errors.New("member name cannot be empty")
	ErrNameTooLong       = errors.New("member name cannot exceed 100 characters")
	ErrEmptyPhone        = errors.New("member phone cannot be empty")
	ErrPhoneTooLong      = errors.New("member phone cannot exceed 32 characters")
	ErrInvalidEmail      = errors.New("member email must be valid")
	ErrMissingStartDate  = errors.New("start date is required")
	ErrMissingExpiryDate = errors.New("expiry date is required")
	ErrExpiryBeforeStart = errors.New("expiry date cannot be before start date")
	ErrNotFound          = errors.New("member not found")
)

// Record is one member row in the backing store.
type Record struct {
	ID         string
	Name       string
	Phone      string
	Email      string
	Plan       membership.Plan
	StartDate  time.Time
	ExpiryDate time.Time
	RecordedBy string
	RecordedAt time.Time
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: ExpiryDate >= StartDate
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrEmptyPhone
	}
	if len(r.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if !r.Plan.IsValid() {
		return membership.ErrUnknownPlan
	}
	if r.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if r.ExpiryDate.IsZero() {
		return ErrMissingExpiryDate
	}
	if r.ExpiryDate.Before(r.StartDate) {
		return ErrExpiryBeforeStart
	}
	return nil
}

// DaysRemaining returns days until expiry as of today. The bool is false
// when the record has no usable expiry date.
func (r *Record) DaysRemaining(today time.Time) (int, bool) {
	if r.ExpiryDate.IsZero() {
		return 0, false
	}
	return membership.DaysRemaining(r.ExpiryDate, today), true
}

// Status classifies the membership as active, expiring, expired or unknown.
// INVARIANT: Record fields are not mutated
func (r *Record) Status(today time.Time, window int) string {
	return membership.Status(r.ExpiryDate, today, window)
}

// MatchesQuery reports whether the name or phone contains query, ignoring case.
// An empty query matches every record.
func (r *Record) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(r.Phone, q)
}
