package member

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

type csvCodec struct{}

func (csvCodec) Name() string    { return "csv" }
func (csvCodec) Pattern() string { return ".members-*.csv" }

func (csvCodec) Read(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	return rows, nil
}

func (csvCodec) Write(w io.Writer, cells [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(cells); err != nil {
		return err
	}
	return cw.Error()
}
