// Package output serializes loaded datasets.
package output

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/ukaji3/dataset-go/pkg/dataset/models"
)

// WriteCSV writes the table as comma-separated text. The header row starts
// with an empty index cell and every data row starts with its 0-based
// index.
//
// Cells are rendered per column: a numeric column holding a float or a
// blank renders all its numbers as floats, and a datetime column whose
// values all fall on midnight renders dates only. Fields are quoted only
// when they contain a comma, a quote or a line break.
func WriteCSV(w io.Writer, table *models.Table) error {
	bw := bufio.NewWriter(w)

	kinds := make([]columnKind, len(table.Columns))
	for c := range kinds {
		kinds[c] = classifyColumn(table.Rows, c)
	}

	header := make([]string, 0, len(table.Columns)+1)
	header = append(header, "")
	header = append(header, table.Columns...)
	writeRecord(bw, header)

	for i, row := range table.Rows {
		record := make([]string, 0, len(row)+1)
		record = append(record, strconv.Itoa(i))
		for c, v := range row {
			kind := objectColumn
			if c < len(kinds) {
				kind = kinds[c]
			}
			record = append(record, formatCell(kind, v))
		}
		writeRecord(bw, record)
	}

	return bw.Flush()
}

// WriteCSVFile writes the table to path, replacing any existing file.
func WriteCSVFile(fsys afero.Fs, path string, table *models.Table) error {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type columnKind int

const (
	objectColumn columnKind = iota
	// numbers with at least one float or blank
	floatColumn
	// datetimes at midnight, possibly with blanks
	dateColumn
)

func classifyColumn(rows [][]interface{}, col int) columnKind {
	var numbers, floats, blanks, times, midnights int
	for _, row := range rows {
		var v interface{}
		if col < len(row) {
			v = row[col]
		}
		switch val := v.(type) {
		case nil:
			blanks++
		case int64, int:
			numbers++
		case float64:
			numbers++
			floats++
		case time.Time:
			times++
			if h, m, s := val.Clock(); h == 0 && m == 0 && s == 0 && val.Nanosecond() == 0 {
				midnights++
			}
		default:
			return objectColumn
		}
	}
	switch {
	case numbers > 0 && times == 0 && floats+blanks > 0:
		return floatColumn
	case times > 0 && numbers == 0 && midnights == times:
		return dateColumn
	}
	return objectColumn
}

func formatCell(kind columnKind, v interface{}) string {
	switch kind {
	case floatColumn:
		switch n := v.(type) {
		case int64:
			return models.FormatValue(float64(n))
		case int:
			return models.FormatValue(float64(n))
		}
	case dateColumn:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.DateOnly)
		}
	}
	return models.FormatValue(v)
}

// writeRecord writes one line. Write errors surface from the final Flush.
func writeRecord(w *bufio.Writer, fields []string) {
	if len(fields) == 1 && fields[0] == "" {
		w.WriteString(`""` + "\n")
		return
	}
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if !strings.ContainsAny(field, ",\"\r\n") {
			w.WriteString(field)
			continue
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
