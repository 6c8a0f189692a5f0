package member

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	domain "gymtrack/internal/domain/member"
)

// codec reads and writes a whole table of cells in one file format.
type codec interface {
	Name() string
	Read(path string) ([][]string, error)
	Write(w io.Writer, cells [][]string) error
	Pattern() string // os.CreateTemp pattern for the staging file
}

// FileStore keeps members in a single spreadsheet-like file. Every call
// reads the whole file and every mutation rewrites it.
// INVARIANT: mu is held for the full read-modify-write of a mutation
type FileStore struct {
	mu     sync.Mutex
	path   string
	codec  codec
	report LoadReport
}

var (
	_ Store    = (*FileStore)(nil)
	_ Reporter = (*FileStore)(nil)
)

// NewXLSXStore opens (or creates) an Excel workbook store at path.
func NewXLSXStore(path string) (*FileStore, error) {
	return openFileStore(path, xlsxCodec{})
}

// NewCSVStore opens (or creates) a CSV store at path.
func NewCSVStore(path string) (*FileStore, error) {
	return openFileStore(path, csvCodec{})
}

// openFileStore creates the file with a header if missing, and upgrades a
// legacy file in place (canonical header, generated IDs).
// PRE: path's directory exists
// POST: the file exists and is readable, or ErrCorruptStore is returned
func openFileStore(path string, c codec) (*FileStore, error) {
	s := &FileStore{path: path, codec: c}
	t, changed, err := s.load()
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.write(t); err != nil {
			return nil, err
		}
		slog.Info("member_store_upgraded", "path", path, "format", c.Name(), "rows", len(t.rows))
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Report returns the decode report from the most recent read.
func (s *FileStore) Report() LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *FileStore) load() (table, bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
		s.report = LoadReport{}
		return table{}, true, nil
	}
	if err != nil {
		return table{}, false, fmt.Errorf("stat %s: %w", s.path, err)
	}

	cells, err := s.codec.Read(s.path)
	if err != nil {
		return table{}, false, err
	}
	t, report, changed, err := decodeTable(cells)
	if err != nil {
		return table{}, false, err
	}
	s.report = report
	for _, issue := range report.Issues {
		slog.Warn("member_row_unparseable",
			"path", s.path,
			"row", issue.Row,
			"member_id", issue.ID,
			"column", issue.Column,
			"value", issue.Value,
			"error", issue.Err,
		)
	}
	return t, changed, nil
}

// write stages the table next to the target and renames it into place.
func (s *FileStore) write(t table) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, s.codec.Pattern())
	if err != nil {
		return fmt.Errorf("stage %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if err := s.codec.Write(tmp, t.encode()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("encode %s: %w", s.codec.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// List returns every record in file order.
func (s *FileStore) List(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.load()
	if err != nil {
		return nil, err
	}
	return t.records(), nil
}

// Get returns the record with id.
// POST: returns domain.ErrNotFound when no row has id
func (s *FileStore) Get(ctx context.Context, id string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.load()
	if err != nil {
		return domain.Record{}, err
	}
	i := t.index(id)
	if i < 0 {
		return domain.Record{}, domain.ErrNotFound
	}
	return t.rows[i].rec, nil
}

// Save inserts rec, or replaces the row with the same ID.
// PRE: rec.ID is non-empty
// POST: the file holds rec and every other row unchanged
func (s *FileStore) Save(ctx context.Context, rec domain.Record) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.load()
	if err != nil {
		return err
	}
	t.upsert(rec)
	return s.write(t)
}

// Delete removes the record with id.
// POST: returns domain.ErrNotFound when no row has id; the file is untouched
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.load()
	if err != nil {
		return err
	}
	if !t.remove(id) {
		return domain.ErrNotFound
	}
	return s.write(t)
}
