package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/twpayne/go-geom"
)

// ----------------------------------------------------------------------------
// NumericCoercion / ColumnResolver Tests
// ----------------------------------------------------------------------------

func TestNumericCoercion(t *testing.T) {
	tbl := NewTableFromRows([]string{"status", "other"}, [][]string{
		{"3", "x"},
		{"3.0", "y"},
		{"ukendt", "z"},
		{"", "w"},
	})

	detail, err := (&NumericCoercion{Columns: []string{"status"}}).Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []Value{IntValue(3), FloatValue(3), Missing(), Missing()}
	for i, w := range want {
		if got := tbl.Rows[i]["status"]; !got.Equal(w) {
			t.Errorf("row %d status = %#v, want %#v", i, got, w)
		}
	}
	if got := tbl.Rows[2]["other"]; !got.Equal(TextValue("z")) {
		t.Errorf("unlisted column changed to %#v", got)
	}
	if detail["cells_cleared"] != 1 {
		t.Errorf("cells_cleared = %d, want 1", detail["cells_cleared"])
	}
}

func TestNumericCoercion_MissingColumn(t *testing.T) {
	tbl := NewTable([]string{"other"})
	_, err := (&NumericCoercion{Columns: []string{"status"}}).Apply(tbl)
	if !IsSchemaError(err) {
		t.Errorf("Apply() error = %v, want SchemaError", err)
	}
}

func TestColumnResolver(t *testing.T) {
	codes := NewCodeIndex([]CodeEntry{
		{Attribute: "byg021BygningensAnvendelse", Key: IntValue(120), Title: "Fritliggende enfamiliehus"},
		{Attribute: "byg021BygningensAnvendelse", Key: IntValue(130), Title: ""},
		{Attribute: "status", Key: FloatValue(3), Title: "Fejlregistreret"},
	})
	tbl := NewTableFromRows(
		[]string{"BYG021BygningensAnvendelse", "status", "notes"},
		[][]string{
			{"120", "3.0", "120"},
			{"999", "3", "x"},
			{"", "", ""},
			{"130", "A", ""},
		},
	)

	detail, err := (&ColumnResolver{Codes: codes}).Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		row  int
		col  string
		want Value
	}{
		{0, "BYG021BygningensAnvendelse", TextValue("Fritliggende enfamiliehus")},
		{0, "status", TextValue("Fejlregistreret")},
		{0, "notes", IntValue(120)},
		{1, "BYG021BygningensAnvendelse", IntValue(999)},
		{1, "status", IntValue(3)},
		{2, "BYG021BygningensAnvendelse", Missing()},
		{3, "BYG021BygningensAnvendelse", IntValue(130)},
		{3, "status", TextValue("A")},
	}
	for _, tt := range tests {
		if got := tbl.Rows[tt.row][tt.col]; !got.Equal(tt.want) {
			t.Errorf("row %d %s = %#v, want %#v", tt.row, tt.col, got, tt.want)
		}
	}

	if detail["columns_resolved"] != 2 {
		t.Errorf("columns_resolved = %d, want 2", detail["columns_resolved"])
	}
	if detail["cells_unresolved"] != 4 {
		t.Errorf("cells_unresolved = %d, want 4", detail["cells_unresolved"])
	}
}

func TestColumnRenamer(t *testing.T) {
	tbl := NewTableFromRows([]string{"status", "id"}, [][]string{{"Opført", "1"}})
	detail, err := (&ColumnRenamer{Rename: RenameMap{"status": "Status"}}).Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !tbl.HasColumn("Status") || tbl.HasColumn("status") {
		t.Errorf("Columns() = %v, want status renamed to Status", tbl.Columns())
	}
	if detail["columns_renamed"] != 1 {
		t.Errorf("columns_renamed = %d, want 1", detail["columns_renamed"])
	}
}

// ----------------------------------------------------------------------------
// ValueTranslator Tests
// ----------------------------------------------------------------------------

func TestValueTranslator_DerivedReadsPreStageValues(t *testing.T) {
	tbl := NewTableFromRows([]string{"Building Usage"}, [][]string{
		{"Fritliggende enfamiliehus"},
		{"Ukendt anvendelse"},
		{"999"},
		{""},
	})

	// The plain translation runs first; the derived column must still see
	// the Danish labels.
	stage := &ValueTranslator{Translations: []Translation{
		{Column: "Building Usage", Vocabulary: VocabularyMap{"Fritliggende enfamiliehus": "Detached single-family house"}},
		{Column: "Building Usage Broad", From: "Building Usage", Vocabulary: VocabularyMap{"Fritliggende enfamiliehus": "Residential"}},
	}}

	detail, err := stage.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		row   int
		usage Value
		broad Value
	}{
		{0, TextValue("Detached single-family house"), TextValue("Residential")},
		{1, TextValue("Ukendt anvendelse"), TextValue("Ukendt anvendelse")},
		{2, IntValue(999), IntValue(999)},
		{3, Missing(), Missing()},
	}
	for _, tt := range tests {
		if got := tbl.Rows[tt.row]["Building Usage"]; !got.Equal(tt.usage) {
			t.Errorf("row %d usage = %#v, want %#v", tt.row, got, tt.usage)
		}
		if got := tbl.Rows[tt.row]["Building Usage Broad"]; !got.Equal(tt.broad) {
			t.Errorf("row %d broad = %#v, want %#v", tt.row, got, tt.broad)
		}
	}
	if detail["cells_translated"] != 2 {
		t.Errorf("cells_translated = %d, want 2", detail["cells_translated"])
	}
}

func TestValueTranslator_MissingColumn(t *testing.T) {
	tbl := NewTableFromRows([]string{"Building Usage"}, [][]string{{"Kontor"}})
	stage := &ValueTranslator{Translations: []Translation{
		{Column: "Building Usage", Vocabulary: VocabularyMap{"Kontor": "Office"}},
		{Column: "Roof Covering Material", Vocabulary: VocabularyMap{}},
	}}

	_, err := stage.Apply(tbl)
	var se *SchemaError
	if !errors.As(err, &se) || se.Column != "Roof Covering Material" {
		t.Fatalf("Apply() error = %v, want SchemaError on Roof Covering Material", err)
	}
	if got := tbl.Rows[0]["Building Usage"]; !got.Equal(TextValue("Kontor")) {
		t.Errorf("table mutated before schema check: %#v", got)
	}
}

func TestValueTranslator_IdentityIsIdempotent(t *testing.T) {
	identity := VocabularyMap{"Kontor": "Kontor", "Parcelhus": "Parcelhus"}
	tbl := NewTableFromRows([]string{"Building Usage"}, [][]string{
		{"Kontor"},
		{"Parcelhus"},
		{"Ukendt"},
		{""},
	})
	before := tbl.Column("Building Usage")

	stage := &ValueTranslator{Translations: []Translation{
		{Column: "Building Usage", Vocabulary: identity},
		{Column: "Building Usage Broad", From: "Building Usage", Vocabulary: identity},
	}}
	for pass := 1; pass <= 2; pass++ {
		detail, err := stage.Apply(tbl)
		if err != nil {
			t.Fatalf("pass %d: Apply() error = %v", pass, err)
		}
		if detail["cells_translated"] != 0 {
			t.Errorf("pass %d: cells_translated = %d, want 0", pass, detail["cells_translated"])
		}
		for i, want := range before {
			for _, col := range []string{"Building Usage", "Building Usage Broad"} {
				if got := tbl.Rows[i][col]; !got.Equal(want) {
					t.Errorf("pass %d: row %d %s = %#v, want %#v", pass, i, col, got, want)
				}
			}
		}
	}
}

// ----------------------------------------------------------------------------
// CoordinateProjector Tests
// ----------------------------------------------------------------------------

func TestParsePoint(t *testing.T) {
	tests := []struct {
		input  string
		x, y   float64
		wantOK bool
	}{
		{"POINT(723456.12 6175432.5)", 723456.12, 6175432.5, true},
		{"POINT(1 2 3)", 1, 2, true},
		{"  POINT(1   2)  ", 1, 2, true},
		{"POINT(1)", 0, 0, false},
		{"POINT(a b)", 0, 0, false},
		{"POINT(NaN 2)", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		pt, ok := ParsePoint(tt.input)
		if ok != tt.wantOK {
			t.Errorf("ParsePoint(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if ok && (pt.X() != tt.x || pt.Y() != tt.y) {
			t.Errorf("ParsePoint(%q) = (%v, %v), want (%v, %v)", tt.input, pt.X(), pt.Y(), tt.x, tt.y)
		}
	}
}

func TestCoordinateProjector(t *testing.T) {
	proj := ProjectorFunc(func(x, y float64) (float64, float64, error) {
		if x < 0 {
			return 0, 0, errors.New("outside area of use")
		}
		return x / 10, y / 10, nil
	})

	tbl := NewTableFromRows([]string{"Coordinate"}, [][]string{
		{"POINT(125 556.5)"},
		{"POINT(-1 2)"},
		{"not a point"},
		{""},
		{"12"},
	})

	stage := &CoordinateProjector{
		Column:          "Coordinate",
		LatColumn:       "lat",
		LonColumn:       "lon",
		ConvertedColumn: "Coordinate Converted",
		Projector:       proj,
	}
	detail, err := stage.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	first := tbl.Rows[0]
	if got := first["lat"]; !got.Equal(TextValue("55.65")) {
		t.Errorf("lat = %#v, want \"55.65\"", got)
	}
	if got := first["lon"]; !got.Equal(TextValue("12.5")) {
		t.Errorf("lon = %#v, want \"12.5\"", got)
	}
	if got := first["Coordinate Converted"]; !got.Equal(TextValue("55.65 12.5")) {
		t.Errorf("Coordinate Converted = %#v, want \"55.65 12.5\"", got)
	}

	for i := 1; i < tbl.Len(); i++ {
		for _, col := range []string{"lat", "lon", "Coordinate Converted"} {
			if got := tbl.Rows[i][col]; !got.IsMissing() {
				t.Errorf("row %d %s = %#v, want Missing", i, col, got)
			}
		}
	}
	if detail["projected"] != 1 || detail["failed"] != 3 {
		t.Errorf("detail = %v, want projected 1 failed 3", detail)
	}
}

// recordingProjector keeps the points it was asked to project.
type recordingProjector struct {
	seen []*geom.Point
}

func (r *recordingProjector) ProjectPoint(p *geom.Point) (*geom.Point, error) {
	r.seen = append(r.seen, p)
	return geom.NewPointFlat(geom.XY, []float64{p.X() + 1, p.Y() + 2}), nil
}

func TestCoordinateProjector_PassesPoints(t *testing.T) {
	rec := &recordingProjector{}
	tbl := NewTableFromRows([]string{"id", "Coordinate"}, [][]string{
		{"1", "POINT(10 20)"},
		{"2", "garbage"},
	})
	stage := &CoordinateProjector{
		Column:          "Coordinate",
		LatColumn:       "lat",
		LonColumn:       "lon",
		ConvertedColumn: "Coordinate Converted",
		Projector:       rec,
	}
	if _, err := stage.Apply(tbl); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(rec.seen) != 1 || rec.seen[0].X() != 10 || rec.seen[0].Y() != 20 {
		t.Fatalf("projected points = %v, want one POINT(10 20)", rec.seen)
	}
	if got := tbl.Rows[0]["Coordinate Converted"]; !got.Equal(TextValue("22 11")) {
		t.Errorf("Coordinate Converted = %#v, want \"22 11\"", got)
	}

	want := []string{"id", "Coordinate", "Coordinate Converted", "lat", "lon"}
	got := tbl.Columns()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestCoordinateProjector_MissingColumn(t *testing.T) {
	_, err := (&CoordinateProjector{Column: "Coordinate", LatColumn: "lat", LonColumn: "lon"}).Apply(NewTable([]string{"x"}))
	if !IsSchemaError(err) {
		t.Errorf("Apply() error = %v, want SchemaError", err)
	}
}

// ----------------------------------------------------------------------------
// DerivedFieldSynthesizer Tests
// ----------------------------------------------------------------------------

func newTestSynthesizer(demolished bool) *DerivedFieldSynthesizer {
	def := DefaultDefinition()
	return &DerivedFieldSynthesizer{
		Demolished:             demolished,
		EffectFromColumn:       def.EffectFromColumn,
		ConstructionYearColumn: def.ConstructionYearColumn,
		EventYearColumn:        def.EventYearColumn,
		AgeColumn:              def.AgeColumn,
		SentinelYear:           def.SentinelYear,
		AreaColumns:            def.AreaColumns,
		AreaColumn:             def.AreaColumn,
	}
}

func TestDerivedFieldSynthesizer_Age(t *testing.T) {
	header := []string{"Effect From", "Year of Construction", "Built-up Area", "Total Building Area", "Total Commercial Area", "Total Residential Area"}
	tbl := NewTableFromRows(header, [][]string{
		{"2015-03-01T00:00:00", "1990", "", "", "", ""},
		{"2015-03-01", "1000", "", "", "", ""},
		{"2015-03-01", "", "", "", "", ""},
		{"", "1990", "", "", "", ""},
		{"ukendt", "1990", "", "", "", ""},
		{"2020", "1990.0", "", "", "", ""},
	})

	if _, err := newTestSynthesizer(true).Apply(tbl); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		row  int
		year Value
		age  Value
	}{
		{0, IntValue(2015), FloatValue(25)},
		{1, IntValue(2015), Missing()},
		{2, IntValue(2015), Missing()},
		{3, Missing(), Missing()},
		{4, Missing(), Missing()},
		{5, IntValue(2020), FloatValue(30)},
	}
	for _, tt := range tests {
		if got := tbl.Rows[tt.row]["Demolition Year"]; !got.Equal(tt.year) {
			t.Errorf("row %d Demolition Year = %#v, want %#v", tt.row, got, tt.year)
		}
		if got := tbl.Rows[tt.row]["Building Age at Demolition"]; !got.Equal(tt.age) {
			t.Errorf("row %d age = %#v, want %#v", tt.row, got, tt.age)
		}
	}
}

func TestDerivedFieldSynthesizer_NotDemolished(t *testing.T) {
	header := []string{"Built-up Area", "Total Building Area", "Total Commercial Area", "Total Residential Area"}
	tbl := NewTableFromRows(header, [][]string{{"1", "2", "3", "4"}})

	if _, err := newTestSynthesizer(false).Apply(tbl); err != nil {
		t.Fatalf("Apply() error = %v, want nil without Effect From column", err)
	}
	if tbl.HasColumn("Building Age at Demolition") {
		t.Error("age column created when not demolished")
	}
}

func TestDerivedFieldSynthesizer_Area(t *testing.T) {
	header := []string{"Built-up Area", "Total Building Area", "Total Commercial Area", "Total Residential Area"}
	tbl := NewTableFromRows(header, [][]string{
		{"-50", "30", "", ""},
		{"", "", "", ""},
		{"abc", "12.5", "", "7"},
	})

	if _, err := newTestSynthesizer(false).Apply(tbl); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := tbl.Rows[0]["Built-up Area"]; !got.Equal(IntValue(50)) {
		t.Errorf("Built-up Area = %#v, want Int 50", got)
	}
	wantAreas := []Value{FloatValue(50), Missing(), FloatValue(12.5)}
	for i, want := range wantAreas {
		if got := tbl.Rows[i]["Area"]; !got.Equal(want) {
			t.Errorf("row %d Area = %#v, want %#v", i, got, want)
		}
	}
	if got := tbl.Rows[2]["Built-up Area"]; !got.IsMissing() {
		t.Errorf("non-numeric area = %#v, want Missing", got)
	}
}

func TestDerivedFieldSynthesizer_MissingColumns(t *testing.T) {
	tbl := NewTable([]string{"Built-up Area", "Total Building Area", "Total Commercial Area", "Total Residential Area"})
	_, err := newTestSynthesizer(true).Apply(tbl)

	var se *SchemaError
	if !errors.As(err, &se) || se.Column != "Effect From" {
		t.Errorf("Apply() error = %v, want SchemaError on Effect From", err)
	}
}

// ----------------------------------------------------------------------------
// RecordFilter Tests
// ----------------------------------------------------------------------------

func TestRecordFilter(t *testing.T) {
	rows := func() *Table {
		tbl := NewTableFromRows([]string{"Status"}, [][]string{
			{"Opført"}, {"Fejlregistreret"}, {"Opført"}, {"Opført"},
		})
		tbl.SetColumn("Area", []Value{FloatValue(600), FloatValue(900), Missing(), FloatValue(500)})
		return tbl
	}

	tests := []struct {
		name       string
		threshold  float64
		wantRows   int
		wantArea   int
		wantStatus int
	}{
		{"filter disabled", 0, 3, 0, 1},
		{"negative disables", -1, 3, 0, 1},
		{"threshold inclusive", 500, 2, 1, 1},
		{"threshold excludes all", 1000, 0, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := rows()
			stage := &RecordFilter{AreaColumn: "Area", AreaThreshold: tt.threshold, StatusColumn: "Status", ExcludeStatus: "Fejlregistreret"}
			detail, err := stage.Apply(tbl)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if tbl.Len() != tt.wantRows {
				t.Errorf("rows = %d, want %d", tbl.Len(), tt.wantRows)
			}
			if detail[DropArea] != tt.wantArea || detail[DropStatus] != tt.wantStatus {
				t.Errorf("dropped = %v, want area %d status %d", detail, tt.wantArea, tt.wantStatus)
			}
		})
	}
}

func TestRecordFilter_StatusMustBeText(t *testing.T) {
	tbl := NewTable([]string{"Status"})
	tbl.Rows = []Record{{"Status": IntValue(3)}}
	if _, err := (&RecordFilter{StatusColumn: "Status", ExcludeStatus: "3"}).Apply(tbl); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("unresolved numeric status was dropped")
	}
}

func TestRecordFilter_MissingStatusColumn(t *testing.T) {
	_, err := (&RecordFilter{StatusColumn: "Status", ExcludeStatus: "Fejlregistreret"}).Apply(NewTable([]string{"Area"}))
	if !IsSchemaError(err) {
		t.Errorf("Apply() error = %v, want SchemaError", err)
	}
}
