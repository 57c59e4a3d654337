package core

// Drop reasons reported by RecordFilter.
const (
	DropArea   = "area"
	DropStatus = "status"
)

// RecordFilter drops records below the area threshold and records carrying
// the excluded status label. A threshold of zero or less disables the area check.
type RecordFilter struct {
	AreaColumn    string
	AreaThreshold float64
	StatusColumn  string
	ExcludeStatus string
}

func (s *RecordFilter) Name() string { return "filter_records" }

func (s *RecordFilter) Apply(t *Table) (map[string]int, error) {
	detail := map[string]int{DropArea: 0, DropStatus: 0}

	if s.AreaThreshold > 0 {
		if err := t.RequireColumns(s.Name(), s.AreaColumn); err != nil {
			return nil, err
		}
		detail[DropArea] = t.Filter(func(rec Record) bool {
			area, ok := rec[s.AreaColumn].Number()
			return ok && area >= s.AreaThreshold
		})
	}

	if err := t.RequireColumns(s.Name(), s.StatusColumn); err != nil {
		return nil, err
	}
	if s.ExcludeStatus != "" {
		detail[DropStatus] = t.Filter(func(rec Record) bool {
			v := rec[s.StatusColumn]
			return !(v.Kind == KindText && v.Text == s.ExcludeStatus)
		})
	}
	return detail, nil
}
