package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// OOXMLEngine reads xlsx packages with excelize.
type OOXMLEngine struct{}

// Name implements Engine.
func (OOXMLEngine) Name() string { return "ooxml" }

// ReadSheet implements Engine.
func (OOXMLEngine) ReadSheet(fsys afero.Fs, path string) (*Sheet, error) {
	r, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// Non-zip input yields zip.ErrFormat, compound documents without a
	// password yield excelize.ErrWorkbookFileFormat.
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleFormat, err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrIncompatibleFormat)
	}

	grid, err := extractCells(f, sheetList[0])
	if err != nil {
		return nil, err
	}
	return &Sheet{Name: sheetList[0], Grid: grid}, nil
}

// extractCells extracts the stored cell values of a sheet. Empty cells are
// nil; numbers whose style renders a date become time.Time.
func extractCells(f *excelize.File, sheetName string) ([][]interface{}, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	sr := &sheetReader{f: f, sheet: sheetName, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sr.date1904 = *props.Date1904
	}

	grid := make([][]interface{}, len(rows))
	for rowIdx, row := range rows {
		cells := make([]interface{}, len(row))
		for colIdx, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			if cells[colIdx], err = sr.value(cell, raw); err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
		}
		grid[rowIdx] = cells
	}

	return grid, nil
}

// sheetReader types the raw values of one sheet.
type sheetReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool // style index -> renders dates
}

func (r *sheetReader) value(cell, raw string) (interface{}, error) {
	typ, err := r.f.GetCellType(r.sheet, cell)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return raw, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return t, nil
		}
		return raw, nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return parseValue(raw), nil
	}
	isDate, err := r.isDateStyled(cell)
	if err != nil {
		return nil, err
	}
	if isDate {
		if t, ok := serialToTime(serial, r.date1904); ok {
			return t, nil
		}
	}
	return parseValue(raw), nil
}

// isDateStyled reports whether the number format of the cell's style
// renders a date or time.
func (r *sheetReader) isDateStyled(cell string) (bool, error) {
	idx, err := r.f.GetCellStyle(r.sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := r.dateStyles[idx]; ok {
		return isDate, nil
	}
	var isDate bool
	if style, err := r.f.GetStyle(idx); err == nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = isDateFormatID(style.NumFmt)
		}
	}
	r.dateStyles[idx] = isDate
	return isDate, nil
}

// parseValue attempts to parse a string value as a number or boolean.
// Returns int64 for integers (including integral decimals), float64 for
// other decimals, bool for TRUE/FALSE, or the original string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return normalizeNumber(f)
	}
	switch s {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return s
}

// normalizeNumber returns integral floats as int64.
func normalizeNumber(f float64) interface{} {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
