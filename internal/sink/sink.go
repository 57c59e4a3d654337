// Package sink writes prepared tables to their destination: CSV and XLSX
// files or streams, a SQLite database file, or a Postgres table.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// Sink writes one prepared table.
type Sink interface {
	Write(ctx context.Context, t *core.Table) error
}

// Format names an output sink.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat reads a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatSQLite, FormatPostgres:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension for file-based formats.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	case FormatPostgres:
		return ""
	default:
		return ".csv"
	}
}

// ContentType returns the MIME type used when a format is served over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Open creates the sink for a CLI run. File formats write to path; the
// Postgres sink writes to table through db. close must be called after Write.
func Open(format Format, path string, db TxBeginner, table string) (s Sink, closeFn func() error, err error) {
	noop := func() error { return nil }

	switch format {
	case FormatCSV, FormatXLSX:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		if format == FormatXLSX {
			return &XLSXWriter{W: f}, f.Close, nil
		}
		return &CSVWriter{W: f}, f.Close, nil
	case FormatSQLite:
		return &SQLiteWriter{Path: path, Table: table}, noop, nil
	case FormatPostgres:
		if db == nil {
			return nil, nil, errors.New("postgres output: database not configured")
		}
		return &PostgresWriter{DB: db, Table: table}, noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// columnType is the storage class of an output column.
type columnType int

const (
	typeText columnType = iota
	typeInteger
	typeReal
)

// inferColumnTypes picks one storage class per column: integer when every
// present cell is Int, real when every present cell is numeric, text
// otherwise. All-missing columns are text.
func inferColumnTypes(t *core.Table) []columnType {
	cols := t.Columns()
	types := make([]columnType, len(cols))
	for i, col := range cols {
		seen, allInt, allNum := false, true, true
		for _, rec := range t.Rows {
			v := rec[col]
			switch v.Kind {
			case core.KindMissing:
				continue
			case core.KindInt:
			case core.KindFloat:
				allInt = false
			default:
				allInt, allNum = false, false
			}
			seen = true
			if !allNum {
				break
			}
		}
		switch {
		case !seen || !allNum:
			types[i] = typeText
		case allInt:
			types[i] = typeInteger
		default:
			types[i] = typeReal
		}
	}
	return types
}

// cellValue converts a cell to a driver value for a column of type ct.
// Missing becomes nil (NULL).
func cellValue(v core.Value, ct columnType) any {
	if v.IsMissing() {
		return nil
	}
	switch ct {
	case typeInteger:
		return v.Int
	case typeReal:
		f, _ := v.Number()
		return f
	default:
		return v.String()
	}
}

var identRegex = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName turns a dataset key or file name into a safe SQL table name.
func TableName(s string) string {
	s = identRegex.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "prepared"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "t_" + s
	}
	return s
}
