package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// ParsePoint reads a "POINT(x y)" literal. Extra tokens after the first two
// are ignored. ok is false for anything that does not yield two finite numbers.
func ParsePoint(s string) (*geom.Point, bool) {
	s = strings.ReplaceAll(s, "POINT(", "")
	s = strings.ReplaceAll(s, ")", "")
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return nil, false
	}

	x, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, false
	}
	y, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
		return nil, false
	}
	return geom.NewPointFlat(geom.XY, []float64{x, y}), true
}

// formatDegrees renders a coordinate with the shortest exact representation.
func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CoordinateProjector parses the source coordinate column and writes
// latitude, longitude and a combined "lat lon" column. Unparseable points
// and projection failures yield Missing in all three outputs.
type CoordinateProjector struct {
	Column          string
	LatColumn       string
	LonColumn       string
	ConvertedColumn string
	Projector       Projector
}

func (s *CoordinateProjector) Name() string { return "project_coordinates" }

func (s *CoordinateProjector) Apply(t *Table) (map[string]int, error) {
	if err := t.RequireColumns(s.Name(), s.Column); err != nil {
		return nil, err
	}

	n := t.Len()
	lats := make([]Value, n)
	lons := make([]Value, n)
	var combined []Value
	if s.ConvertedColumn != "" {
		combined = make([]Value, n)
	}

	projected, failed := 0, 0
	for i, rec := range t.Rows {
		lat, lon, ok := s.project(rec[s.Column])
		if !ok {
			if !rec[s.Column].IsMissing() {
				failed++
			}
			continue
		}
		latText, lonText := formatDegrees(lat), formatDegrees(lon)
		lats[i] = TextValue(latText)
		lons[i] = TextValue(lonText)
		if combined != nil {
			combined[i] = TextValue(latText + " " + lonText)
		}
		projected++
	}

	if combined != nil {
		t.SetColumn(s.ConvertedColumn, combined)
	}
	t.SetColumn(s.LatColumn, lats)
	t.SetColumn(s.LonColumn, lons)
	return map[string]int{"projected": projected, "failed": failed}, nil
}

func (s *CoordinateProjector) project(v Value) (lat, lon float64, ok bool) {
	if v.Kind != KindText || s.Projector == nil {
		return 0, 0, false
	}
	pt, ok := ParsePoint(v.Text)
	if !ok {
		return 0, 0, false
	}
	out, err := s.Projector.ProjectPoint(pt)
	if err != nil || out == nil {
		return 0, 0, false
	}
	lon, lat = out.X(), out.Y()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return 0, 0, false
	}
	return lat, lon, true
}
