package membership

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the canonical on-disk date format.
const DateLayout = "2006-01-02"

// ErrEmptyDate is returned by ParseDate for blank input.
var ErrEmptyDate = errors.New("date is empty")

// DateParseError describes a date cell that matched none of the accepted layouts.
type DateParseError struct {
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unrecognised date %q", e.Value)
}

// acceptedLayouts are tried in order. Day-first slash dates follow the
// original deployment's locale.
var acceptedLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01-02-06",
	"02/01/2006",
	"2/1/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate parses a stored or user-entered date into a calendar date.
// PRE: none
// POST: returns a midnight-UTC time, ErrEmptyDate, or *DateParseError
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	// Excel serial dates appear when a cell was typed as a number.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, &DateParseError{Value: s}
}

// Date truncates t to its calendar date at midnight UTC.
// The wall-clock date of t in its own location is kept.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date as seen in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return Date(now)
}

// FormatDate renders a date in DateLayout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
