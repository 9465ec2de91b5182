// Package render turns backend data into display-ready text.
//
// Everything here is a pure function of its input: no state, no I/O.
// Backend payloads are treated as untrusted, so every string that
// reaches the terminal goes through Sanitize first.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// NoResults is shown instead of a grid when there is nothing to draw.
const NoResults = "No results found"

// Markup is a rectangular grid of display cells.
// The zero value is the "no results" marker.
type Markup struct {
	Header []string
	Rows   [][]string
}

// Table renders columns and rows into a grid. If either is empty the
// result is the "no results" marker. Column and row order are kept.
// The grid is as wide as the longest row: short rows are padded with
// empty cells and surplus cells get unnamed header columns.
func Table(columns []string, rows [][]any) Markup {
	if len(columns) == 0 || len(rows) == 0 {
		return Markup{}
	}

	width := len(columns)
	for _, row := range rows {
		width = max(width, len(row))
	}

	m := Markup{
		Header: make([]string, width),
		Rows:   make([][]string, 0, len(rows)),
	}
	for i, col := range columns {
		m.Header[i] = Sanitize(col)
	}
	for _, row := range rows {
		cells := make([]string, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = Cell(row[i])
			}
		}
		m.Rows = append(m.Rows, cells)
	}
	return m
}

// Empty reports whether m is the "no results" marker.
func (m Markup) Empty() bool {
	return len(m.Header) == 0 || len(m.Rows) == 0
}

// String draws the grid with box characters, or returns NoResults.
func (m Markup) String() string {
	if m.Empty() {
		return NoResults
	}

	t := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	header := make(table.Row, len(m.Header))
	for i, h := range m.Header {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, cells := range m.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}

	return t.Render() + fmt.Sprintf("\n(%d row%s)", len(m.Rows), plural(len(m.Rows)))
}

// Cell formats a single value as-is. JSON numbers keep their literal
// text; nil is shown as NULL.
func Cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return Sanitize(v)
	case json.Number:
		return v.String()
	case []byte:
		return Sanitize(string(v))
	default:
		return Sanitize(fmt.Sprintf("%v", v))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
