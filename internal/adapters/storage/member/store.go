package member

import (
	"context"
	"errors"
	"fmt"

	domain "gymtrack/internal/domain/member"
)

// Store persists member records.
type Store interface {
	List(ctx context.Context) ([]domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Save(ctx context.Context, rec domain.Record) error
	Delete(ctx context.Context, id string) error
}

// Reporter is implemented by stores that can describe rows they could not
// fully decode on the last read.
type Reporter interface {
	Report() LoadReport
}

// Storage errors
var (
	ErrCorruptStore = errors.New("member store is unreadable")
	ErrMissingID    = errors.New("member record has no id")
)

// LoadIssue describes one cell that could not be decoded.
type LoadIssue struct {
	Row    int // 1-based data row, header excluded
	ID     string
	Name   string
	Column string
	Value  string
	Err    error
}

func (i LoadIssue) String() string {
	return fmt.Sprintf("row %d (%s): %s %q: %v", i.Row, i.Name, i.Column, i.Value, i.Err)
}

// LoadReport lists decode problems found while reading the store.
type LoadReport struct {
	Rows   int
	Issues []LoadIssue
}

// HasIssues reports whether any row had an undecodable cell.
func (r LoadReport) HasIssues() bool {
	return len(r.Issues) > 0
}
