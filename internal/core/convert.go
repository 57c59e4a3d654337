package core

// convert.go provides the typed cell model used by every pipeline stage.
//
// Registry extracts arrive as text. A token becomes:
//   - Missing when it is empty
//   - Float when it contains a decimal point and parses as a number
//   - Int when it has no decimal point and parses as an integer
//   - Text otherwise
//
// The same rule types code-table keys, so a cell resolves only when its
// kind and value match a key exactly. Int 3 and Float 3.0 are different keys.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Missing returns the "no value" cell.
func Missing() Value { return Value{} }

// IntValue returns an integer cell.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue returns a floating-point cell.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// TextValue returns a text cell.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// ParseValue types a raw token using the decimal-point rule.
// Text keeps the token exactly as given; numeric detection ignores
// surrounding whitespace.
func ParseValue(token string) Value {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Missing()
	}

	if strings.Contains(trimmed, ".") {
		if numericRegex.MatchString(trimmed) {
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return FloatValue(f)
			}
		}
		return TextValue(token)
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i)
	}
	return TextValue(token)
}

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// IsNumeric reports whether the cell holds an Int or a Float.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Number returns the numeric value of an Int or Float cell.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Equal reports whether two cells have the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindText:
		return v.Text == o.Text
	default:
		return true
	}
}

// String renders the cell for output. Missing renders as "" and Float
// always carries a decimal point so the kind survives a round trip.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return FormatFloat(v.Float)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// FormatFloat renders f with full precision, e.g. 50 -> "50.0", 55.61 -> "55.61".
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ToNumeric coerces a cell to a number. Int and Float pass through, Text
// is re-parsed and becomes Missing when it is not numeric.
func ToNumeric(v Value) Value {
	switch v.Kind {
	case KindInt, KindFloat, KindMissing:
		return v
	}

	parsed := ParseValue(v.Text)
	if parsed.IsNumeric() {
		return parsed
	}

	// Exponent forms like "1e5" have no decimal point but are still numbers.
	s := strings.TrimSpace(v.Text)
	if numericRegex.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatValue(f)
		}
	}
	return Missing()
}

// Abs returns the absolute value of a numeric cell; other cells are returned unchanged.
func Abs(v Value) Value {
	switch v.Kind {
	case KindInt:
		if v.Int < 0 {
			return IntValue(-v.Int)
		}
	case KindFloat:
		return FloatValue(math.Abs(v.Float))
	}
	return v
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a header or mapping cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
// - Removes a leading UTF-8 BOM
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return s
}
