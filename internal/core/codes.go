package core

// codes.go builds the code-table index used to resolve coded columns.
//
// The source code table is hierarchical: one row carries a key and a title
// plus a `fields` cell listing every dataset.attribute pair that shares them,
// e.g. "['BBR.byg032YdervæggensMateriale', 'BBR.byg034SupplerendeYdervæggensMateriale']".
// ExplodeCodeRows flattens those rows into one CodeEntry per pair, and
// NewCodeIndex turns the flat list into attribute -> key -> title.

import (
	"sort"
	"strings"
)

// Code table columns.
const (
	CodeFieldsColumn = "fields"
	CodeKeyColumn    = "key"
	CodeTitleColumn  = "title"
)

// CodeIndex resolves (attribute, key) pairs to titles.
// Attributes match case-insensitively; keys match on exact kind and value.
// An index is immutable once built and safe to share between stages.
type CodeIndex struct {
	byAttribute map[string]map[Value]string
	entries     int
}

// NewCodeIndex groups entries by lowercased attribute. When an attribute
// repeats a key, the later title wins.
func NewCodeIndex(entries []CodeEntry) *CodeIndex {
	idx := &CodeIndex{byAttribute: make(map[string]map[Value]string)}
	for _, e := range entries {
		if e.Key.IsMissing() {
			continue
		}
		attr := strings.ToLower(e.Attribute)
		codes, ok := idx.byAttribute[attr]
		if !ok {
			codes = make(map[Value]string)
			idx.byAttribute[attr] = codes
		}
		codes[e.Key] = e.Title
		idx.entries++
	}
	return idx
}

// Lookup returns the title for a key of an attribute.
// ok is false when there is no exact match; callers leave the value unchanged.
func (c *CodeIndex) Lookup(attribute string, key Value) (string, bool) {
	if c == nil {
		return "", false
	}
	codes, ok := c.byAttribute[strings.ToLower(attribute)]
	if !ok {
		return "", false
	}
	title, ok := codes[key]
	return title, ok
}

// Codes returns the key -> title mapping for one attribute, or nil.
// The returned map is shared and must not be modified.
func (c *CodeIndex) Codes(attribute string) map[Value]string {
	if c == nil {
		return nil
	}
	return c.byAttribute[strings.ToLower(attribute)]
}

// Attributes returns the indexed attribute names (lowercase), sorted.
func (c *CodeIndex) Attributes() []string {
	attrs := make([]string, 0, len(c.byAttribute))
	for a := range c.byAttribute {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	return attrs
}

// Len returns the number of indexed entries.
func (c *CodeIndex) Len() int {
	if c == nil {
		return 0
	}
	return c.entries
}

// NormalizeKey types a raw code key: a token containing "." is a float,
// otherwise an integer, and anything unparseable keeps its raw text.
func NormalizeKey(raw string) Value {
	return ParseValue(raw)
}

// ExplodeCodeRows flattens raw code rows into one entry per dataset.attribute pair.
func ExplodeCodeRows(rows []RawCodeRow) []CodeEntry {
	entries := make([]CodeEntry, 0, len(rows))
	for _, row := range rows {
		key := NormalizeKey(row.Key)
		for _, field := range ParseFieldList(row.Fields) {
			dataset, attribute := splitField(field)
			entries = append(entries, CodeEntry{
				Dataset:   dataset,
				Attribute: attribute,
				Key:       key,
				Title:     row.Title,
			})
		}
	}
	return entries
}

// ParseFieldList reads a `fields` cell. It accepts a list literal such as
// "['BBR.a', 'BBR.b']" or a bare single "BBR.a".
func ParseFieldList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	var fields []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// splitField splits "dataset.attribute" on the first dot.
func splitField(field string) (dataset, attribute string) {
	if i := strings.Index(field, "."); i >= 0 {
		return field[:i], field[i+1:]
	}
	return "", field
}

// ParseCodeTable reads raw code-table rows (header first) into RawCodeRows.
// The table must have fields, key and title columns.
func ParseCodeTable(header []string, rows [][]string) ([]RawCodeRow, error) {
	idx, err := ValidateHeaders("code table", header, CodeFieldsColumn, CodeKeyColumn, CodeTitleColumn)
	if err != nil {
		return nil, err
	}

	out := make([]RawCodeRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, RawCodeRow{
			Fields: getCell(row, idx, CodeFieldsColumn),
			Key:    getCell(row, idx, CodeKeyColumn),
			Title:  getCell(row, idx, CodeTitleColumn),
		})
	}
	return out, nil
}
