package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_NoResults(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{name: "no columns no rows", columns: nil, rows: nil},
		{name: "empty slices", columns: []string{}, rows: [][]any{}},
		{name: "columns but no rows", columns: []string{"a"}, rows: [][]any{}},
		{name: "rows but no columns", columns: nil, rows: [][]any{{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Table(tt.columns, tt.rows)
			assert.True(t, m.Empty())
			assert.Equal(t, NoResults, m.String())
		})
	}
}

func TestTable_GridKeepsOrder(t *testing.T) {
	m := Table([]string{"a", "b"}, [][]any{{1, 2}, {3, 4}})

	require.False(t, m.Empty())
	assert.Equal(t, []string{"a", "b"}, m.Header)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, m.Rows)

	out := m.String()
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
	assert.Contains(t, out, "(2 rows)")
	assert.Less(t, strings.Index(out, "1"), strings.Index(out, "3"), "row order must be preserved")
}

func TestTable_HeaderCaseIsPreserved(t *testing.T) {
	out := Table([]string{"student_name"}, [][]any{{"Ann"}}).String()
	assert.Contains(t, out, "student_name")
	assert.NotContains(t, out, "STUDENT_NAME")
}

func TestTable_RaggedRowsAreRectangular(t *testing.T) {
	m := Table([]string{"a", "b", "c"}, [][]any{{1}, {1, 2, 3, 4}})

	assert.Equal(t, []string{"a", "b", "c", ""}, m.Header, "surplus cells get an unnamed column")
	for _, row := range m.Rows {
		assert.Len(t, row, 4)
	}
	assert.Equal(t, []string{"1", "", "", ""}, m.Rows[0])
	assert.Equal(t, []string{"1", "2", "3", "4"}, m.Rows[1])
	assert.Contains(t, m.String(), "4", "no backend cell is dropped")
}

func TestCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: "NULL"},
		{name: "string", in: "Ann", want: "Ann"},
		{name: "json number", in: json.Number("12345678901234567890"), want: "12345678901234567890"},
		{name: "float", in: 1.5, want: "1.5"},
		{name: "bool", in: true, want: "true"},
		{name: "bytes", in: []byte("raw"), want: "raw"},
		{name: "escape sequence stripped", in: "\x1b[31mred\x1b[0m", want: "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.in))
		})
	}
}
