package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// TxBeginner starts a transaction; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresWriter replaces Table with the prepared rows using COPY.
// The drop, create and copy run in one transaction, so readers see either
// the previous table or the complete new one.
type PostgresWriter struct {
	DB    TxBeginner
	Table string
}

func (s *PostgresWriter) Write(ctx context.Context, t *core.Table) error {
	table := TableName(s.Table)
	cols := t.Columns()
	types := inferColumnTypes(t)

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " " + postgresType(types[i])
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	ident := pgx.Identifier{table}.Sanitize()
	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+ident); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, `CREATE TABLE `+ident+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	rows := make([][]any, len(t.Rows))
	for i, rec := range t.Rows {
		row := make([]any, len(cols))
		for j, col := range cols {
			row[j] = cellValue(rec[col], types[j])
		}
		rows[i] = row
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, n, len(rows))
	}

	return tx.Commit(ctx)
}

func postgresType(ct columnType) string {
	switch ct {
	case typeInteger:
		return "BIGINT"
	case typeReal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}
