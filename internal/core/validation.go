package core

// validation.go provides structural checks for input and mapping tables.
//
// Dirty registry data is never an error: unmapped codes, untranslatable values,
// malformed coordinates and non-numeric areas are all recovered locally by the
// stages. Only schema mismatches propagate:
//  1. A column the pipeline is configured to use is absent from the input table
//  2. A mapping table lacks a column it is read by (e.g. "Original Field")
//
// Both are reported as *SchemaError so callers can tell configuration problems
// apart from I/O failures.

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports a configured column that a table does not have.
type SchemaError struct {
	Table  string // "input" or the mapping table's name
	Column string // Column that is missing or conflicting
	Reason string // Human-readable detail
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema error in %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: column %q: %s", e.Table, e.Column, e.Reason)
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ValidateHeaders checks that every required column exists in a mapping
// table header. Returns the header index, or a SchemaError listing the
// missing columns.
func ValidateHeaders(table string, headers []string, required ...string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, name := range required {
		if _, ok := idx[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, &SchemaError{
			Table:  table,
			Column: missing[0],
			Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	return idx, nil
}

// getCell returns the cleaned cell for a column, or "" when the row is short.
func getCell(row []string, idx HeaderIndex, name string) string {
	pos, ok := idx[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}
