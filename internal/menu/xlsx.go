package menu

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (Menu, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Menu{}, ErrEmptyMenu
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Menu{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return Parse(rows), nil
}
