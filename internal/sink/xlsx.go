package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// DefaultSheet is the worksheet name used when XLSXWriter.Sheet is empty.
const DefaultSheet = "Sheet1"

// XLSXWriter writes the table to a single worksheet. Numeric columns are
// stored as numbers, everything else as text.
type XLSXWriter struct {
	W     io.Writer
	Sheet string
}

func (s *XLSXWriter) Write(ctx context.Context, t *core.Table) error {
	sheet := s.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()
	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return err
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open xlsx stream: %w", err)
	}

	cols := t.Columns()
	types := inferColumnTypes(t)

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, rec := range t.Rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := make([]any, len(cols))
		for j, col := range cols {
			row[j] = cellValue(rec[col], types[j])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(s.W); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
