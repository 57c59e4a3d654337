package core

import (
	"strconv"
	"strings"
)

// DerivedFieldSynthesizer computes the event year, age at the event and the
// consolidated area. The age fields are only produced when Demolished is set.
type DerivedFieldSynthesizer struct {
	Demolished bool

	EffectFromColumn       string
	ConstructionYearColumn string
	EventYearColumn        string
	AgeColumn              string
	SentinelYear           int64

	AreaColumns []string
	AreaColumn  string
}

func (s *DerivedFieldSynthesizer) Name() string { return "derive_fields" }

func (s *DerivedFieldSynthesizer) Apply(t *Table) (map[string]int, error) {
	required := append([]string(nil), s.AreaColumns...)
	if s.Demolished {
		required = append(required, s.EffectFromColumn, s.ConstructionYearColumn)
	}
	if err := t.RequireColumns(s.Name(), required...); err != nil {
		return nil, err
	}

	detail := map[string]int{}
	if s.Demolished {
		detail["ages"] = s.deriveAge(t)
	}
	detail["areas"] = s.deriveArea(t)
	return detail, nil
}

func (s *DerivedFieldSynthesizer) deriveAge(t *Table) int {
	years := make([]Value, t.Len())
	ages := make([]Value, t.Len())
	computed := 0

	for i, rec := range t.Rows {
		year := EventYear(rec[s.EffectFromColumn])
		years[i] = year
		if year.IsMissing() {
			continue
		}

		built, ok := ToNumeric(rec[s.ConstructionYearColumn]).Number()
		if !ok || built == float64(s.SentinelYear) {
			continue
		}
		ages[i] = FloatValue(float64(year.Int) - built)
		computed++
	}

	if s.EventYearColumn != "" {
		t.SetColumn(s.EventYearColumn, years)
	}
	t.SetColumn(s.AgeColumn, ages)
	return computed
}

// EventYear returns the integer formed by the first four characters of a
// date-like value such as "2015-03-01", or Missing when they are not a number.
func EventYear(v Value) Value {
	if v.IsMissing() {
		return Missing()
	}
	s := strings.TrimSpace(v.String())
	if r := []rune(s); len(r) > 4 {
		s = string(r[:4])
	}
	year, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Missing()
	}
	return IntValue(year)
}

func (s *DerivedFieldSynthesizer) deriveArea(t *Table) int {
	for _, col := range s.AreaColumns {
		for _, rec := range t.Rows {
			rec[col] = Abs(ToNumeric(rec[col]))
		}
	}

	areas := make([]Value, t.Len())
	present := 0
	for i, rec := range t.Rows {
		best, found := 0.0, false
		for _, col := range s.AreaColumns {
			n, ok := rec[col].Number()
			if !ok {
				continue
			}
			if !found || n > best {
				best, found = n, true
			}
		}
		if found {
			areas[i] = FloatValue(best)
			present++
		}
	}
	t.SetColumn(s.AreaColumn, areas)
	return present
}
