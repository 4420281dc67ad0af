package parser

import (
	"fmt"

	"github.com/ukaji3/dataset-go/pkg/dataset/models"
)

// BuildTable converts a cell grid into a table. Blank rows are dropped,
// the first remaining row supplies the column names and the widest row
// sets the column count.
func BuildTable(sheetName string, grid [][]interface{}) *models.Table {
	table := &models.Table{
		Sheet:   sheetName,
		Columns: []string{},
		Rows:    [][]interface{}{},
	}

	var rows [][]interface{}
	width := 0
	for _, row := range grid {
		row = trimRow(row)
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(rows) == 0 {
		return table
	}

	table.Columns = columnNames(rows[0], width)
	for _, row := range rows[1:] {
		padded := make([]interface{}, width)
		for i, v := range row {
			if !models.IsEmpty(v) {
				padded[i] = v
			}
		}
		table.Rows = append(table.Rows, padded)
	}

	return table
}

// trimRow drops trailing empty cells.
func trimRow(row []interface{}) []interface{} {
	end := len(row)
	for end > 0 && models.IsEmpty(row[end-1]) {
		end--
	}
	return row[:end]
}

// columnNames names header cells, using "Unnamed: <i>" for empty ones and
// suffixing repeated names with ".1", ".2", ...
func columnNames(header []interface{}, width int) []string {
	names := make([]string, width)
	for i := range names {
		if i < len(header) && !models.IsEmpty(header[i]) {
			names[i] = models.FormatValue(header[i])
		} else {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return dedupNames(names)
}

func dedupNames(names []string) []string {
	counts := make(map[string]int)
	for i, name := range names {
		cur := counts[name]
		for cur > 0 {
			counts[name] = cur + 1
			name = fmt.Sprintf("%s.%d", name, cur)
			cur = counts[name]
		}
		names[i] = name
		counts[name] = cur + 1
	}
	return names
}
