package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gymtrack/internal/adapters/storage"
	domain "gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
)

// SQLiteStore implements Store using the application database.
type SQLiteStore struct {
	db storage.SQLDB

	mu     sync.Mutex
	report LoadReport
}

var (
	_ Store    = (*SQLiteStore)(nil)
	_ Reporter = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const memberColumns = "id, name, phone, email, plan, start_date, expiry_date, recorded_by, recorded_at"

// List returns every member ordered by insertion.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM member ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report LoadReport
	var results []domain.Record
	for rows.Next() {
		report.Rows++
		rec, issues, err := scanMember(rows.Scan, report.Rows)
		if err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, issues...)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.report = report
	s.mu.Unlock()
	return results, nil
}

// Get retrieves a member by ID.
// PRE: id is non-empty
// POST: Returns the record or domain.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)
	rec, _, err := scanMember(row.Scan, 1)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound
	}
	return rec, err
}

// Save persists a member (insert or update).
// PRE: rec.ID is non-empty
// POST: Record is persisted
func (s *SQLiteStore) Save(ctx context.Context, rec domain.Record) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	query := `INSERT INTO member (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			phone=excluded.phone,
			email=excluded.email,
			plan=excluded.plan,
			start_date=excluded.start_date,
			expiry_date=excluded.expiry_date,
			recorded_by=excluded.recorded_by,
			recorded_at=excluded.recorded_at`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Phone,
		rec.Email,
		string(rec.Plan),
		membership.FormatDate(rec.StartDate),
		membership.FormatDate(rec.ExpiryDate),
		rec.RecordedBy,
		formatTimestamp(rec.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("save member %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a member by ID.
// POST: Returns domain.ErrNotFound when no row was removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Report returns the decode report from the most recent List.
func (s *SQLiteStore) Report() LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// scanMember extracts a Record from a row scanner function.
func scanMember(scan func(dest ...any) error, rowNum int) (domain.Record, []LoadIssue, error) {
	var rec domain.Record
	var plan, start, expiry, recordedAt string
	if err := scan(
		&rec.ID,
		&rec.Name,
		&rec.Phone,
		&rec.Email,
		&plan,
		&start,
		&expiry,
		&rec.RecordedBy,
		&recordedAt,
	); err != nil {
		return domain.Record{}, nil, err
	}

	var issues []LoadIssue
	issue := func(col, val string, err error) {
		issues = append(issues, LoadIssue{Row: rowNum, ID: rec.ID, Name: rec.Name, Column: col, Value: val, Err: err})
	}
	p, err := membership.ParsePlan(plan)
	if err != nil {
		issue(ColPlan, plan, err)
		p = membership.PlanCustom
	}
	rec.Plan = p
	if start != "" {
		if rec.StartDate, err = membership.ParseDate(start); err != nil {
			issue(ColStartDate, start, err)
		}
	}
	if expiry != "" {
		if rec.ExpiryDate, err = membership.ParseDate(expiry); err != nil {
			issue(ColEndDate, expiry, err)
		}
	}
	if recordedAt != "" {
		if rec.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			issue(ColRecordedAt, recordedAt, err)
		}
	}
	return rec, issues, nil
}
