// Package models defines the in-memory structures of a loaded dataset.
package models

// Table is the tabular content of a metadata spreadsheet.
type Table struct {
	// Sheet is the name of the worksheet the table was read from.
	Sheet string `json:"sheet"`
	// Columns holds the column names in sheet order.
	Columns []string `json:"columns"`
	// Rows holds the data rows. Every row has len(Columns) values; empty
	// cells are nil.
	Rows [][]interface{} `json:"rows"`
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at the given row and named column.
func (t *Table) Value(row int, column string) (interface{}, bool) {
	col := t.ColumnIndex(column)
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[row][col], true
}
