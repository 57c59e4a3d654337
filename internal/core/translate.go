package core

// Translation applies one vocabulary to one column.
// With From set, Column is written from the pre-stage values of From.
type Translation struct {
	Column     string
	From       string
	Vocabulary VocabularyMap
}

// ValueTranslator substitutes resolved labels with target-vocabulary labels.
// Translations run in order, but every derived translation reads the
// snapshot of its source taken before the first one was applied.
type ValueTranslator struct {
	Translations []Translation
}

func (s *ValueTranslator) Name() string { return "translate_values" }

func (s *ValueTranslator) Apply(t *Table) (map[string]int, error) {
	snapshot := make(map[string][]Value)
	for _, tr := range s.Translations {
		src := tr.Column
		if tr.From != "" {
			src = tr.From
		}
		if err := t.RequireColumns(s.Name(), src); err != nil {
			return nil, err
		}
		if tr.From != "" {
			if _, ok := snapshot[tr.From]; !ok {
				snapshot[tr.From] = t.Column(tr.From)
			}
		}
	}

	translated := 0
	for _, tr := range s.Translations {
		var src []Value
		if tr.From != "" {
			src = snapshot[tr.From]
		} else {
			src = t.Column(tr.Column)
		}

		out := make([]Value, len(src))
		for i, v := range src {
			out[i] = v
			if v.Kind != KindText {
				continue
			}
			if to := tr.Vocabulary.Translate(v.Text); to != v.Text {
				out[i] = TextValue(to)
				translated++
			}
		}
		t.SetColumn(tr.Column, out)
	}
	return map[string]int{"translations": len(s.Translations), "cells_translated": translated}, nil
}
