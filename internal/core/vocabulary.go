package core

import "strings"

// Rename table columns.
const (
	RenameOriginalColumn   = "Original Field"
	RenameTranslatedColumn = "Translated Field"
)

// ParseVocabulary builds a VocabularyMap from a two-column mapping table.
// Rows with an empty key or an empty target are skipped, so a blank target
// never turns a value into a missing one. A repeated key keeps its last target.
func ParseVocabulary(name string, header []string, rows [][]string, keyField, valueField string) (VocabularyMap, error) {
	idx, err := ValidateHeaders(name, header, keyField, valueField)
	if err != nil {
		return nil, err
	}

	vocab := make(VocabularyMap, len(rows))
	for _, row := range rows {
		key := getCell(row, idx, keyField)
		value := getCell(row, idx, valueField)
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		vocab[key] = value
	}
	return vocab, nil
}

// Translate returns the substitute for s, or s itself when unmapped.
func (v VocabularyMap) Translate(s string) string {
	if to, ok := v[s]; ok {
		return to
	}
	return s
}

// ParseRenameTable builds a RenameMap from the column-name table.
func ParseRenameTable(header []string, rows [][]string) (RenameMap, error) {
	idx, err := ValidateHeaders("column names", header, RenameOriginalColumn, RenameTranslatedColumn)
	if err != nil {
		return nil, err
	}

	m := make(RenameMap, len(rows))
	for _, row := range rows {
		from := strings.TrimSpace(getCell(row, idx, RenameOriginalColumn))
		to := strings.TrimSpace(getCell(row, idx, RenameTranslatedColumn))
		if from == "" || to == "" {
			continue
		}
		m[from] = to
	}
	return m, nil
}
