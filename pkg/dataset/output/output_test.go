package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/dataset-go/pkg/dataset/models"
)

func salesTable() *models.Table {
	return &models.Table{
		Sheet:   "Sheet1",
		Columns: []string{"id", "name"},
		Rows:    [][]interface{}{{int64(1), "a"}, {int64(2), "b"}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, salesTable()))

	assert.Equal(t, ",id,name\n0,1,a\n1,2,b\n", buf.String())
}

func TestWriteCSVQuotesAndEmptyCells(t *testing.T) {
	table := &models.Table{
		Columns: []string{"note", "score"},
		Rows:    [][]interface{}{{"a, b", nil}, {`say "hi"`, 1.0}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	assert.Equal(t, ",note,score\n0,\"a, b\",\n1,\"say \"\"hi\"\"\",1.0\n", buf.String())
}

func TestWriteCSVMinimalQuoting(t *testing.T) {
	table := &models.Table{
		Columns: []string{" padded", "multi"},
		Rows:    [][]interface{}{{"  lead", "a\nb"}, {"\ttab", "x\ry"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	assert.Equal(t, ", padded,multi\n0,  lead,\"a\nb\"\n1,\ttab,\"x\ry\"\n", buf.String())
}

func TestWriteCSVColumnRendering(t *testing.T) {
	midnight := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	table := &models.Table{
		Columns: []string{"ints", "mixed", "sparse", "objects", "dates", "stamps", "flags"},
		Rows: [][]interface{}{
			{int64(1), int64(1), int64(3), int64(1), midnight, midnight, true},
			{int64(2), 2.5, nil, "b", nil, noon, nil},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	assert.Equal(t, ",ints,mixed,sparse,objects,dates,stamps,flags\n"+
		"0,1,1.0,3.0,1,2024-01-15,2024-01-15 00:00:00,True\n"+
		"1,2,2.5,,b,,2024-01-16 12:00:00,\n", buf.String())
}

func TestWriteCSVNoColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &models.Table{}))

	assert.Equal(t, "\"\"\n", buf.String())
}

func TestWriteCSVFileReplacesExisting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/sales.xlsx", []byte("old content that is longer"), 0o644))

	require.NoError(t, WriteCSVFile(fsys, "/out/sales.xlsx", salesTable()))

	data, err := afero.ReadFile(fsys, "/out/sales.xlsx")
	require.NoError(t, err)
	assert.Equal(t, ",id,name\n0,1,a\n1,2,b\n", string(data))
}

func TestToJSON(t *testing.T) {
	ds := models.NewDataset()
	ds.Set("sales", models.NewMetadataEntry("/d/sales.xlsx", salesTable()))
	ds.Set("README.md", models.NewRawEntry("/d/README.md"))

	data, err := ToJSON(ds, false)
	require.NoError(t, err)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "sales", got[0]["key"])
	assert.Equal(t, "metadata", got[0]["kind"])
	assert.Equal(t, float64(2), got[0]["rows"])
	assert.Equal(t, "raw", got[1]["kind"])
	assert.NotContains(t, got[1], "columns")
}
