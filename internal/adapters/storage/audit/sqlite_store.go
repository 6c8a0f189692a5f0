package audit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gymtrack/internal/adapters/storage"
	domain "gymtrack/internal/domain/audit"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const eventColumns = "id, timestamp, category, action, actor, resource_id, description"

// timestampLayout is fixed-width so timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Save persists an audit event.
// PRE: event is valid
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(timestampLayout),
		string(event.Category),
		string(event.Action),
		event.Actor,
		event.ResourceID,
		event.Description,
	)
	return err
}

// List returns audit events with optional filtering.
// POST: Returns at most filter.Limit events (DefaultListLimit when unset), newest first
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]domain.Event, error) {
	var where []string
	var args []any
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}

	query := "SELECT " + eventColumns + " FROM audit_event"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var e domain.Event
	var timestamp string
	err := rows.Scan(&e.ID, &timestamp, &e.Category, &e.Action, &e.Actor, &e.ResourceID, &e.Description)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp, _ = time.Parse(timestampLayout, timestamp)
	return e, nil
}
