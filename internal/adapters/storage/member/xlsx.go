package member

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written to new workbooks.
const SheetName = "Sheet1"

type xlsxCodec struct{}

func (xlsxCodec) Name() string    { return "xlsx" }
func (xlsxCodec) Pattern() string { return ".members-*.xlsx" }

// Read returns the cells of the first worksheet. Date cells come back as
// Excel serial numbers so their value does not depend on display format.
func (xlsxCodec) Read(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: %s has no worksheets", ErrCorruptStore, path)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	return rows, nil
}

// Write renders cells as text into a fresh workbook.
func (xlsxCodec) Write(w io.Writer, cells [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, r := range cells {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return err
		}
	}
	if len(cells) > 0 {
		// Header row stays visible while scrolling.
		if err := f.SetPanes(SheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
