package member

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
)

// Column names of the spreadsheet and CSV layouts.
const (
	ColID         = "ID"
	ColName       = "Name"
	ColPhone      = "Phone"
	ColEmail      = "Email"
	ColPlan       = "Plan"
	ColStartDate  = "Start_Date"
	ColEndDate    = "End_Date"
	ColRecordedBy = "Recorded_By"
	ColRecordedAt = "Recorded_At"
)

// Header is the column order written by the file stores.
var Header = []string{ColID, ColName, ColPhone, ColEmail, ColPlan, ColStartDate, ColEndDate, ColRecordedBy, ColRecordedAt}

// headerAliases maps normalised header text to a column.
var headerAliases = map[string]string{
	"id":           ColID,
	"member_id":    ColID,
	"name":         ColName,
	"phone":        ColPhone,
	"mobile":       ColPhone,
	"phone_number": ColPhone,
	"email":        ColEmail,
	"plan":         ColPlan,
	"membership":   ColPlan,
	"start_date":   ColStartDate,
	"start":        ColStartDate,
	"end_date":     ColEndDate,
	"expiry_date":  ColEndDate,
	"expiry":       ColEndDate,
	"recorded_by":  ColRecordedBy,
	"recorded_at":  ColRecordedAt,
}

// row is a decoded record plus the original text of cells that did not
// decode, so a rewrite never loses what staff typed.
type row struct {
	rec       domain.Record
	rawPlan   string
	rawStart  string
	rawExpiry string
	rawRecAt  string
}

type table struct {
	rows []row
}

func normaliseHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// decodeTable maps raw cells to rows. changed is true when the file must be
// rewritten, e.g. legacy header or rows that were given an ID.
func decodeTable(cells [][]string) (table, LoadReport, bool, error) {
	var t table
	var report LoadReport
	if len(cells) == 0 {
		return t, report, true, nil
	}

	cols := map[string]int{}
	for i, h := range cells[0] {
		col, ok := headerAliases[normaliseHeader(h)]
		if !ok {
			continue
		}
		if _, dup := cols[col]; !dup {
			cols[col] = i
		}
	}
	if _, ok := cols[ColName]; !ok {
		return table{}, report, false, fmt.Errorf("%w: header has no %s column", ErrCorruptStore, ColName)
	}
	if _, ok := cols[ColEndDate]; !ok {
		return table{}, report, false, fmt.Errorf("%w: header has no %s column", ErrCorruptStore, ColEndDate)
	}

	changed := !sameHeader(cells[0])
	seen := map[string]bool{}
	cell := func(r []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	n := 0
	for _, r := range cells[1:] {
		if blankRow(r) {
			changed = true
			continue
		}
		n++
		rw := row{rec: domain.Record{
			ID:         cell(r, ColID),
			Name:       cell(r, ColName),
			Phone:      cell(r, ColPhone),
			Email:      cell(r, ColEmail),
			RecordedBy: cell(r, ColRecordedBy),
		}}
		if rw.rec.ID == "" || seen[rw.rec.ID] {
			rw.rec.ID = uuid.NewString()
			changed = true
		}
		seen[rw.rec.ID] = true

		issue := func(col, val string, err error) {
			report.Issues = append(report.Issues, LoadIssue{Row: n, ID: rw.rec.ID, Name: rw.rec.Name, Column: col, Value: val, Err: err})
		}

		if v := cell(r, ColPlan); v != "" {
			p, err := membership.ParsePlan(v)
			if err != nil {
				issue(ColPlan, v, err)
				p = membership.PlanCustom
				rw.rawPlan = v
			}
			rw.rec.Plan = p
		} else {
			rw.rec.Plan = membership.PlanCustom
		}

		if v := cell(r, ColStartDate); v != "" {
			d, err := membership.ParseDate(v)
			if err != nil {
				issue(ColStartDate, v, err)
				rw.rawStart = v
			}
			rw.rec.StartDate = d
		}
		if v := cell(r, ColEndDate); v != "" {
			d, err := membership.ParseDate(v)
			if err != nil {
				issue(ColEndDate, v, err)
				rw.rawExpiry = v
			}
			rw.rec.ExpiryDate = d
		}
		if v := cell(r, ColRecordedAt); v != "" {
			at, err := parseTimestamp(v)
			if err != nil {
				issue(ColRecordedAt, v, err)
				rw.rawRecAt = v
			}
			rw.rec.RecordedAt = at
		}
		t.rows = append(t.rows, rw)
	}
	report.Rows = n
	return t, report, changed, nil
}

// encode renders the table with the canonical header.
func (t table) encode() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, append([]string(nil), Header...))
	for _, rw := range t.rows {
		r := rw.rec
		plan := r.Plan.Label()
		if rw.rawPlan != "" {
			plan = rw.rawPlan
		}
		out = append(out, []string{
			r.ID,
			r.Name,
			r.Phone,
			r.Email,
			plan,
			orRaw(membership.FormatDate(r.StartDate), rw.rawStart),
			orRaw(membership.FormatDate(r.ExpiryDate), rw.rawExpiry),
			r.RecordedBy,
			orRaw(formatTimestamp(r.RecordedAt), rw.rawRecAt),
		})
	}
	return out
}

func (t table) records() []domain.Record {
	out := make([]domain.Record, len(t.rows))
	for i, rw := range t.rows {
		out[i] = rw.rec
	}
	return out
}

func (t table) index(id string) int {
	for i, rw := range t.rows {
		if rw.rec.ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces the row with rec.ID or appends a new one.
func (t *table) upsert(rec domain.Record) {
	if i := t.index(rec.ID); i >= 0 {
		t.rows[i] = row{rec: rec}
		return
	}
	t.rows = append(t.rows, row{rec: rec})
}

func (t *table) remove(id string) bool {
	i := t.index(id)
	if i < 0 {
		return false
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return true
}

func sameHeader(h []string) bool {
	if len(h) != len(Header) {
		return false
	}
	for i := range h {
		if strings.TrimSpace(h[i]) != Header[i] {
			return false
		}
	}
	return true
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func orRaw(formatted, raw string) string {
	if formatted == "" {
		return raw
	}
	return formatted
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return membership.ParseDate(s)
}
