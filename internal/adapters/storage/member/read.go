package member

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	domain "gymtrack/internal/domain/member"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported member file format (want .xlsx or .csv)")

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxCodec{}, nil
	case ".csv":
		return csvCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ReadFile decodes a member spreadsheet without modifying it. Records are
// returned in file order; record i is data row i+1 in the report.
// Rows without an ID are given a fresh one.
func ReadFile(path string) ([]domain.Record, LoadReport, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, LoadReport{}, err
	}
	cells, err := c.Read(path)
	if err != nil {
		return nil, LoadReport{}, err
	}
	t, report, _, err := decodeTable(cells)
	if err != nil {
		return nil, LoadReport{}, err
	}
	return t.records(), report, nil
}
