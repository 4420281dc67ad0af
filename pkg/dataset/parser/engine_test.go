package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, fsys afero.Fs, path string, cells map[string]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, path, buf.Bytes(), 0o644))
}

func TestParseTableFallsBackToOOXML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeWorkbook(t, fsys, "/ds/sales.xlsx", map[string]interface{}{
		"A1": "id", "B1": "name",
		"A2": 1, "B2": "a",
		"A3": 2, "B3": "b",
	})

	table, err := New(fsys, nil).ParseTable("/ds/sales.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", table.Sheet)
	assert.Equal(t, []string{"id", "name"}, table.Columns)
	assert.Equal(t, [][]interface{}{{int64(1), "a"}, {int64(2), "b"}}, table.Rows)
}

func TestParseTableInvalidFormat(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/ds/notes.xlsx", []byte("plain text, not a workbook"), 0o644))

	_, err := New(fsys, nil).ParseTable("/ds/notes.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, ErrIncompatibleFormat)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "/ds/notes.xlsx", fe.Path)
	assert.Equal(t, "ooxml", fe.Engine)
}

// testdataFs exposes the committed fixtures read-only.
func testdataFs() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

func TestLegacyEngineReadsCompoundFile(t *testing.T) {
	fsys := testdataFs()

	sheet, err := LegacyEngine{}.ReadSheet(fsys, "testdata/subjects.xls")
	require.NoError(t, err)
	assert.Equal(t, "Subjects", sheet.Name)

	for name, p := range map[string]*Parser{
		"legacy only":   New(fsys, nil).WithEngines(LegacyEngine{}),
		"default chain": New(fsys, nil),
	} {
		t.Run(name, func(t *testing.T) {
			table, err := p.ParseTable("testdata/subjects.xls")
			require.NoError(t, err)

			assert.Equal(t, "Subjects", table.Sheet)
			assert.Equal(t, []string{"subject_id", "age", "weight", "visit"}, table.Columns)
			require.Equal(t, 2, table.NumRows())
			assert.Equal(t, []interface{}{"sub-1", int64(31), 70.5}, table.Rows[0][:3])
			assert.Equal(t, []interface{}{"sub-2", int64(45), 82.25}, table.Rows[1][:3])
			assertTime(t, "2024-01-15 00:00:00", table.Rows[0][3])
			assertTime(t, "2024-01-16 00:00:00", table.Rows[1][3])
		})
	}
}

func TestParseTableCompoundFileWithoutWorkbookStream(t *testing.T) {
	_, err := New(testdataFs(), nil).ParseTable("testdata/book_stream.xls")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "ooxml", fe.Engine)
	assert.Contains(t, err.Error(), "legacy: incompatible workbook format: no Workbook stream")
	assert.Contains(t, err.Error(), "; ooxml: ")
}

func TestParseTableReportsEveryEngineError(t *testing.T) {
	t.Run("corrupt workbook stream", func(t *testing.T) {
		_, err := New(testdataFs(), nil).ParseTable("testdata/corrupt_workbook.xls")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidFormat)
		assert.ErrorIs(t, err, errTruncated)
		assert.Contains(t, err.Error(), "legacy: incompatible workbook format: truncated record")
		assert.Contains(t, err.Error(), "; ooxml: ")
	})

	t.Run("stub engines", func(t *testing.T) {
		var calls int
		errA := fmt.Errorf("%w: bad records", ErrIncompatibleFormat)
		errB := fmt.Errorf("%w: not a zip", ErrIncompatibleFormat)
		p := New(afero.NewMemMapFs(), nil).WithEngines(
			stubEngine{name: "a", err: errA, calls: &calls},
			stubEngine{name: "b", err: errB, calls: &calls},
		)
		_, err := p.ParseTable("x.xlsx")
		require.Error(t, err)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Equal(t, "cannot read x.xlsx: a: incompatible workbook format: bad records; "+
			"b: incompatible workbook format: not a zip", err.Error())
		assert.Equal(t, 2, calls)
	})
}

func TestParseTableMissingFile(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), nil).ParseTable("/nope.xlsx")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrInvalidFormat)
}

type stubEngine struct {
	name  string
	sheet *Sheet
	err   error
	calls *int
}

func (s stubEngine) Name() string { return s.name }

func (s stubEngine) ReadSheet(afero.Fs, string) (*Sheet, error) {
	*s.calls++
	return s.sheet, s.err
}

func TestParseTableEngineOrder(t *testing.T) {
	var first, second int
	sheet := &Sheet{Name: "S", Grid: [][]interface{}{{"h"}, {int64(1)}}}

	t.Run("other errors are not retried", func(t *testing.T) {
		first, second = 0, 0
		boom := errors.New("boom")
		p := New(afero.NewMemMapFs(), nil).WithEngines(
			stubEngine{name: "a", err: boom, calls: &first},
			stubEngine{name: "b", sheet: sheet, calls: &second},
		)
		_, err := p.ParseTable("x.xlsx")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, first)
		assert.Equal(t, 0, second)
	})

	t.Run("incompatible format retries next engine", func(t *testing.T) {
		first, second = 0, 0
		p := New(afero.NewMemMapFs(), nil).WithEngines(
			stubEngine{name: "a", err: ErrIncompatibleFormat, calls: &first},
			stubEngine{name: "b", sheet: sheet, calls: &second},
		)
		table, err := p.ParseTable("x.xlsx")
		require.NoError(t, err)
		assert.Equal(t, []string{"h"}, table.Columns)
		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)
	})
}
