package core

import "fmt"

// Table is the in-memory registry extract: ordered column names plus rows.
// Every stage mutates rows in place and finishes the whole table before
// the next stage starts.
type Table struct {
	columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// NewTableFromRows builds a table from a header and raw string rows,
// typing each cell with ParseValue. Short rows are padded with Missing.
func NewTableFromRows(header []string, rows [][]string) *Table {
	t := NewTable(header)
	t.Rows = make([]Record, 0, len(rows))
	for _, row := range rows {
		t.AppendRaw(row)
	}
	return t
}

// AppendRaw types and appends one raw row.
func (t *Table) AppendRaw(row []string) {
	rec := make(Record, len(t.columns))
	for i, col := range t.columns {
		if i < len(row) {
			rec[col] = ParseValue(row[i])
		} else {
			rec[col] = Missing()
		}
	}
	t.Rows = append(t.Rows, rec)
}

// Columns returns a copy of the column names in output order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table has a column with exactly this name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns returns a SchemaError naming the first absent column.
func (t *Table) RequireColumns(stage string, names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return &SchemaError{Table: "input", Column: name, Reason: "missing required column for " + stage}
		}
	}
	return nil
}

// SetColumn writes values into a column, appending the column if it is new.
// values must have one entry per row.
func (t *Table) SetColumn(name string, values []Value) {
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
	for i, rec := range t.Rows {
		rec[name] = values[i]
	}
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.Rows))
	for i, rec := range t.Rows {
		out[i] = rec[name]
	}
	return out
}

// RenameColumns applies a rename map. Columns absent from the map keep
// their name. Renaming two columns onto one name is a schema error.
func (t *Table) RenameColumns(m RenameMap) error {
	renamed := make([]string, len(t.columns))
	seen := make(map[string]string, len(t.columns))
	for i, col := range t.columns {
		target := col
		if to, ok := m[col]; ok && to != "" {
			target = to
		}
		if prev, dup := seen[target]; dup {
			return &SchemaError{
				Table:  "column names",
				Column: target,
				Reason: fmt.Sprintf("columns %q and %q both map to this name", prev, col),
			}
		}
		seen[target] = col
		renamed[i] = target
	}

	for _, rec := range t.Rows {
		moved := make(map[string]Value, len(t.columns))
		for i, col := range t.columns {
			moved[renamed[i]] = rec[col]
		}
		for k := range rec {
			delete(rec, k)
		}
		for k, v := range moved {
			rec[k] = v
		}
	}
	t.columns = renamed
	return nil
}

// Filter keeps the rows for which keep returns true and reports how many were dropped.
func (t *Table) Filter(keep func(Record) bool) int {
	kept := t.Rows[:0]
	for _, rec := range t.Rows {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	dropped := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return dropped
}

// Strings renders every row as strings in column order, for writers.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, rec := range t.Rows {
		row := make([]string, len(t.columns))
		for j, col := range t.columns {
			row[j] = rec[col].String()
		}
		out[i] = row
	}
	return out
}
