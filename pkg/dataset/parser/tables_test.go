package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTable(t *testing.T) {
	grid := [][]interface{}{
		nil,
		{"id", "name"},
		{int64(1), "a"},
		{"", nil},
		{int64(2), "b", nil},
	}

	table := BuildTable("Sheet1", grid)

	assert.Equal(t, "Sheet1", table.Sheet)
	assert.Equal(t, []string{"id", "name"}, table.Columns)
	assert.Equal(t, [][]interface{}{{int64(1), "a"}, {int64(2), "b"}}, table.Rows)
}

func TestBuildTablePadsToWidestRow(t *testing.T) {
	grid := [][]interface{}{
		{"a", nil, "a"},
		{int64(1), int64(2), int64(3), int64(4)},
		{int64(5)},
	}

	table := BuildTable("S", grid)

	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1", "Unnamed: 3"}, table.Columns)
	assert.Equal(t, []interface{}{int64(5), nil, nil, nil}, table.Rows[1])
}

func TestBuildTableEmpty(t *testing.T) {
	table := BuildTable("S", [][]interface{}{nil, {""}})

	assert.Empty(t, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestDedupNames(t *testing.T) {
	tests := []struct {
		input    []string
		expected []string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{[]string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, dedupNames(append([]string(nil), tt.input...)), "input %v", tt.input)
	}
}
