package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// CSVWriter writes the table as comma-separated text with a header row.
// Missing cells are empty and floats keep their decimal point.
type CSVWriter struct {
	W io.Writer
}

func (s *CSVWriter) Write(ctx context.Context, t *core.Table) error {
	w := csv.NewWriter(s.W)
	if err := w.Write(t.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	cols := t.Columns()
	row := make([]string, len(cols))
	for i, rec := range t.Rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, col := range cols {
			row[j] = rec[col].String()
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	w.Flush()
	return w.Error()
}
