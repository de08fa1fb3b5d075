package models

// Row is one extracted movement keyed by column name. The set of columns
// depends on the parser that produced it.
type Row map[string]any

// Table is an ordered collection of movement rows. Columns fixes the column
// order used when the table is previewed or rendered.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with the given column order.
func NewTable(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row to the table.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// HasColumn reports whether col is part of the table header.
func (t Table) HasColumn(col string) bool {
	return t.ColumnIndex(col) >= 0
}

// ColumnIndex returns the zero-based header position of col, or -1.
func (t Table) ColumnIndex(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Head returns a table holding at most the first n rows. Rows are shared,
// not copied.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		n = len(t.Rows)
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// FirstValue returns the first non-empty value of col, scanning rows in order.
func (t Table) FirstValue(col string) (any, bool) {
	for _, r := range t.Rows {
		v, ok := r[col]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Values returns the values of col in row order. Missing cells are nil.
func (t Table) Values(col string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}
