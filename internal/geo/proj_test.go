package geo

import (
	"math"
	"strconv"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

func TestTransformer_Project(t *testing.T) {
	tr, err := NewTransformer(DefaultSourceCRS, DefaultTargetCRS)
	if err != nil {
		t.Fatalf("NewTransformer() error = %v", err)
	}
	defer tr.Destroy()

	// Easting 500000 lies on the zone 32 central meridian (9°E).
	lon, lat, err := tr.Project(500000, 6200000)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if math.Abs(lon-9) > 1e-6 {
		t.Errorf("lon = %v, want 9", lon)
	}
	if lat < 55.8 || lat > 56.1 {
		t.Errorf("lat = %v, want about 55.9", lat)
	}
}

func TestTransformer_ProjectPoint(t *testing.T) {
	tr, err := NewTransformer(DefaultSourceCRS, DefaultTargetCRS)
	if err != nil {
		t.Fatalf("NewTransformer() error = %v", err)
	}
	defer tr.Destroy()

	p, err := tr.ProjectPoint(geom.NewPointFlat(geom.XY, []float64{500000, 6200000}))
	if err != nil {
		t.Fatalf("ProjectPoint() error = %v", err)
	}
	if math.Abs(p.X()-9) > 1e-6 {
		t.Errorf("X = %v, want 9", p.X())
	}

	var _ core.Projector = tr
	if _, err := tr.ProjectPoint(geom.NewPointFlat(geom.XY, []float64{math.Inf(1), 0})); err == nil {
		t.Error("ProjectPoint(+Inf) error = nil, want error")
	}
}

func TestNewTransformer_UnknownCRS(t *testing.T) {
	if _, err := NewTransformer("EPSG:0", DefaultTargetCRS); err == nil {
		t.Error("NewTransformer(EPSG:0) error = nil, want error")
	}
	if err := Check("not a crs", DefaultTargetCRS); err == nil {
		t.Error("Check() error = nil, want error")
	}
}

func TestFactory_DrivesCoordinateStage(t *testing.T) {
	p, release, err := Factory(DefaultSourceCRS, DefaultTargetCRS)()
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	defer release()

	table := core.NewTableFromRows([]string{"Coordinate"}, [][]string{
		{"POINT(500000 6200000)"},
		{"POINT(nan 1)"},
	})
	stage := &core.CoordinateProjector{
		Column:          "Coordinate",
		LatColumn:       "lat",
		LonColumn:       "lon",
		ConvertedColumn: "Coordinate Converted",
		Projector:       p,
	}
	if _, err := stage.Apply(table); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	lon, err := strconv.ParseFloat(table.Rows[0]["lon"].Text, 64)
	if err != nil || math.Abs(lon-9) > 1e-6 {
		t.Errorf("lon = %#v, want Text near 9", table.Rows[0]["lon"])
	}
	if !table.Rows[1]["lat"].IsMissing() {
		t.Errorf("unparseable point lat = %#v, want Missing", table.Rows[1]["lat"])
	}
}
