package core

import "strings"

// Stage is one step of the pipeline. Apply processes the whole table and
// returns counters for logging and metrics.
type Stage interface {
	Name() string
	Apply(t *Table) (map[string]int, error)
}

// NumericCoercion converts coded columns to numbers before resolution.
// Text cells are re-parsed; anything that is not a number becomes Missing.
type NumericCoercion struct {
	Columns []string
}

func (s *NumericCoercion) Name() string { return "numeric_coercion" }

func (s *NumericCoercion) Apply(t *Table) (map[string]int, error) {
	if err := t.RequireColumns(s.Name(), s.Columns...); err != nil {
		return nil, err
	}

	cleared := 0
	for _, col := range s.Columns {
		for _, rec := range t.Rows {
			v := rec[col]
			n := ToNumeric(v)
			if n.IsMissing() && !v.IsMissing() {
				cleared++
			}
			rec[col] = n
		}
	}
	return map[string]int{"columns": len(s.Columns), "cells_cleared": cleared}, nil
}

// ColumnResolver replaces coded cells with their titles from the code table.
// A column is looked up by its lowercased name; columns without codes are
// left alone, as are cells whose value is not a known key.
type ColumnResolver struct {
	Codes *CodeIndex
}

func (s *ColumnResolver) Name() string { return "resolve_codes" }

func (s *ColumnResolver) Apply(t *Table) (map[string]int, error) {
	resolved, unresolved := 0, 0
	for _, col := range t.columns {
		codes := s.Codes.Codes(strings.ToLower(col))
		if len(codes) == 0 {
			continue
		}
		resolved++
		for _, rec := range t.Rows {
			v := rec[col]
			title, ok := codes[v]
			switch {
			case ok && title != "":
				rec[col] = TextValue(title)
			case !v.IsMissing():
				unresolved++
			}
		}
	}
	return map[string]int{"columns_resolved": resolved, "cells_unresolved": unresolved}, nil
}

// ColumnRenamer applies the static column-name table.
type ColumnRenamer struct {
	Rename RenameMap
}

func (s *ColumnRenamer) Name() string { return "rename_columns" }

func (s *ColumnRenamer) Apply(t *Table) (map[string]int, error) {
	renamed := 0
	for _, col := range t.columns {
		if to, ok := s.Rename[col]; ok && to != "" && to != col {
			renamed++
		}
	}
	if err := t.RenameColumns(s.Rename); err != nil {
		return nil, err
	}
	return map[string]int{"columns_renamed": renamed}, nil
}
