// Package geo wraps PROJ for the coordinate stage. A Transformer is bound
// to one source and target CRS and is not safe for concurrent use; the
// service creates one per run through a Factory.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-proj/v10"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// Default CRS pair of the Danish registry: ETRS89 / UTM zone 32N to WGS 84.
const (
	DefaultSourceCRS = "EPSG:25832"
	DefaultTargetCRS = "EPSG:4326"
)

// ErrNonFinite is returned when PROJ yields an infinite or NaN coordinate,
// which it does for points outside the projection's domain.
var ErrNonFinite = errors.New("projected coordinate is not finite")

// Transformer projects planar coordinates to longitude and latitude.
type Transformer struct {
	pj     *proj.PJ
	source string
	target string
}

// NewTransformer creates a transformer between two CRS definitions.
// Axis order is normalized so output is always (lon, lat).
func NewTransformer(source, target string) (*Transformer, error) {
	pj, err := proj.NewCRSToCRS(source, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create projection %s -> %s: %w", source, target, err)
	}
	norm, err := pj.NormalizeForVisualization()
	pj.Destroy()
	if err != nil {
		return nil, fmt.Errorf("normalize projection %s -> %s: %w", source, target, err)
	}
	return &Transformer{pj: norm, source: source, target: target}, nil
}

// Project transforms one planar coordinate pair to (lon, lat).
func (t *Transformer) Project(x, y float64) (lon, lat float64, err error) {
	out, err := t.pj.Forward(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, err
	}
	lon, lat = out.X(), out.Y()
	if !finite(lon) || !finite(lat) {
		return 0, 0, ErrNonFinite
	}
	return lon, lat, nil
}

// ProjectPoint implements core.Projector: it projects a planar point into
// a new point in the target CRS.
func (t *Transformer) ProjectPoint(p *geom.Point) (*geom.Point, error) {
	lon, lat, err := t.Project(p.X(), p.Y())
	if err != nil {
		return nil, err
	}
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}), nil
}

// String describes the CRS pair for logs.
func (t *Transformer) String() string {
	return t.source + " -> " + t.target
}

// Destroy releases the PROJ object.
func (t *Transformer) Destroy() {
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
}

// Factory returns a core.ProjectorFactory creating a fresh transformer per run.
func Factory(source, target string) core.ProjectorFactory {
	return func() (core.Projector, func(), error) {
		t, err := NewTransformer(source, target)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Destroy, nil
	}
}

// Check verifies that PROJ can build the transformation. Called at startup
// so a missing PROJ database fails fast rather than on the first run.
func Check(source, target string) error {
	t, err := NewTransformer(source, target)
	if err != nil {
		return err
	}
	t.Destroy()
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
