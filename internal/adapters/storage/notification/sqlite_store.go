package notification

import (
	"context"
	"database/sql"
	"time"

	"gymtrack/internal/adapters/storage"
	"gymtrack/internal/domain/membership"
	domain "gymtrack/internal/domain/notification"
)

// DefaultListLimit bounds ListRecent when no limit is given.
const DefaultListLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new notification store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const notificationColumns = "id, member_id, channel, recipient, subject, body, expiry_date, status, attempts, provider_id, error, created_at, sent_at"

// Save persists a Notification (insert or update).
// PRE: n has been validated
// POST: the attempt outcome is stored
func (s *SQLiteStore) Save(ctx context.Context, n domain.Notification) error {
	query := `INSERT INTO notification (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			attempts=excluded.attempts,
			provider_id=excluded.provider_id,
			error=excluded.error,
			sent_at=excluded.sent_at`

	var sentAt any
	if !n.SentAt.IsZero() {
		sentAt = n.SentAt.UTC().Format(storage.TimeLayout)
	}
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.MemberID,
		n.Channel,
		n.Recipient,
		n.Subject,
		n.Body,
		membership.FormatDate(n.ExpiryDate),
		n.Status,
		n.Attempts,
		n.ProviderID,
		n.Error,
		n.CreatedAt.UTC().Format(storage.TimeLayout),
		sentAt,
	)
	return err
}

// FindSent reports whether a sent notification exists for the triple.
func (s *SQLiteStore) FindSent(ctx context.Context, memberID string, expiry time.Time, channel string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM notification WHERE member_id = ? AND expiry_date = ? AND channel = ? AND status = ? LIMIT 1",
		memberID, membership.FormatDate(expiry), channel, domain.StatusSent,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClaimTimeout is how long a pending claim blocks other runs. A claim older
// than this belongs to a run that died before recording its outcome.
const ClaimTimeout = 15 * time.Minute

// errAbandoned is recorded on claims that outlived ClaimTimeout.
const errAbandoned = "abandoned: run stopped before recording an outcome"

// Claim inserts n as pending. The unique index on pending and sent rows
// makes the insert fail for a reminder that is in flight or delivered.
// PRE: n.Status is pending and n has been validated
// POST: true means the caller owns the reminder and must Save its outcome
func (s *SQLiteStore) Claim(ctx context.Context, n domain.Notification) (bool, error) {
	for i := 0; i < 2; i++ {
		res, err := s.db.ExecContext(ctx, `INSERT INTO notification (`+notificationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
			ON CONFLICT DO NOTHING`,
			n.ID,
			n.MemberID,
			n.Channel,
			n.Recipient,
			n.Subject,
			n.Body,
			membership.FormatDate(n.ExpiryDate),
			domain.StatusPending,
			n.Attempts,
			n.ProviderID,
			n.Error,
			n.CreatedAt.UTC().Format(storage.TimeLayout),
		)
		if err != nil {
			return false, err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return false, err
		} else if rows == 1 {
			return true, nil
		}

		released, err := s.releaseStaleClaim(ctx, n)
		if err != nil || !released {
			return false, err
		}
	}
	return false, nil
}

// releaseStaleClaim marks a pending claim older than ClaimTimeout as failed.
func (s *SQLiteStore) releaseStaleClaim(ctx context.Context, n domain.Notification) (bool, error) {
	var id, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM notification WHERE member_id = ? AND expiry_date = ? AND channel = ? AND status = ?",
		n.MemberID, membership.FormatDate(n.ExpiryDate), n.Channel, domain.StatusPending,
	).Scan(&id, &createdAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	claimedAt, err := time.Parse(storage.TimeLayout, createdAt)
	if err != nil || n.CreatedAt.Sub(claimedAt) < ClaimTimeout {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE notification SET status = ?, error = ? WHERE id = ? AND status = ?",
		domain.StatusFailed, errAbandoned, id, domain.StatusPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows == 1, err
}

// ListRecent returns the newest notifications first.
// PRE: limit >= 0; zero means DefaultListLimit
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notification ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var expiry, createdAt string
		var sentAt sql.NullString
		if err := rows.Scan(
			&n.ID,
			&n.MemberID,
			&n.Channel,
			&n.Recipient,
			&n.Subject,
			&n.Body,
			&expiry,
			&n.Status,
			&n.Attempts,
			&n.ProviderID,
			&n.Error,
			&createdAt,
			&sentAt,
		); err != nil {
			return nil, err
		}
		n.ExpiryDate, _ = membership.ParseDate(expiry)
		n.CreatedAt, _ = time.Parse(storage.TimeLayout, createdAt)
		if sentAt.Valid {
			n.SentAt, _ = time.Parse(storage.TimeLayout, sentAt.String)
		}
		results = append(results, n)
	}
	return results, rows.Err()
}
