package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// SQLiteWriter replaces Table in the SQLite database at Path with the
// prepared rows. The file is created when it does not exist.
type SQLiteWriter struct {
	Path  string
	Table string
}

func (s *SQLiteWriter) Write(ctx context.Context, t *core.Table) error {
	db, err := sql.Open("sqlite", s.Path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.Path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	table := quoteIdent(TableName(s.Table))
	cols := t.Columns()
	types := inferColumnTypes(t)

	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		defs[i] = quoted[i] + " " + sqliteType(types[i])
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+table+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	ph := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (`+strings.Join(quoted, ", ")+`) VALUES (`+ph+`)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for i, rec := range t.Rows {
		for j, col := range cols {
			args[j] = cellValue(rec[col], types[j])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

func sqliteType(ct columnType) string {
	switch ct {
	case typeInteger:
		return "INTEGER"
	case typeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// quoteIdent double-quotes an identifier for SQLite and Postgres.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
