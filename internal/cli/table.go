package cli

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders rows as aligned plain-text columns.
type Table struct {
	headers    []string
	rows       [][]string
	padding    int
	alignRight map[int]bool
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers:    headers,
		padding:    2,
		alignRight: make(map[int]bool),
	}
}

// AlignRight right-aligns the given columns, typically numeric ones.
func (t *Table) AlignRight(cols ...int) {
	for _, c := range cols {
		t.alignRight[c] = true
	}
}

// AddRow adds a row, padding or truncating it to the header count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render formats and returns the table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var sb strings.Builder
	t.writeLine(&sb, t.headers, widths)

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	t.writeLine(&sb, sep, widths)

	for _, row := range t.rows {
		t.writeLine(&sb, row, widths)
	}
	return sb.String()
}

// WriteTo writes the rendered table to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Render())
	return int64(n), err
}

func (t *Table) writeLine(sb *strings.Builder, cells []string, widths []int) {
	gap := strings.Repeat(" ", t.padding)
	parts := make([]string, len(cells))
	for i, cell := range cells {
		fill := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		if t.alignRight[i] {
			parts[i] = fill + cell
		} else {
			parts[i] = cell + fill
		}
	}
	sb.WriteString(strings.TrimRight(strings.Join(parts, gap), " "))
	sb.WriteString("\n")
}
