// Package source reads the raw registry extract and the mapping tables
// (code table, column names, vocabularies) from disk.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("empty file")

// ReadCSV reads a delimited file into a cleaned header and raw rows.
// Ragged rows are accepted; short rows read as missing trailing cells.
func ReadCSV(r io.Reader, delimiter rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv header: %w", err)
	}
	header = cleanHeader(header)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = core.CleanCell(h)
	}
	return out
}

// DedupeHeader renames repeated column names "name", "name.1", "name.2", ...
// so every column of the raw table stays addressable.
func DedupeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))

	for i, h := range header {
		name := h
		for used[name] {
			counts[h]++
			name = h + "." + strconv.Itoa(counts[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// RawReader reads the raw extract. It implements core.TableReader.
type RawReader struct {
	// Delimiter defaults to ','.
	Delimiter rune
}

// ReadTable reads a raw CSV extract and types every cell.
func (r RawReader) ReadTable(in io.Reader) (*core.Table, error) {
	delim := r.Delimiter
	if delim == 0 {
		delim = ','
	}

	header, rows, err := ReadCSV(in, delim)
	if err != nil {
		return nil, err
	}
	return core.NewTableFromRows(DedupeHeader(header), rows), nil
}
