// Package core provides the business logic for preparing building-registry extracts.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/twpayne/go-geom"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// HeaderIndex maps column names (lowercase) to their position in a CSV row.
type HeaderIndex map[string]int

// ValueKind identifies how a cell value is stored.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindInt
	KindFloat
	KindText
)

// Value is a single table cell. The zero value is Missing.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Text  string
}

// Record is one row of the table, keyed by column name.
type Record map[string]Value

// CodeEntry is one exploded row of the code table.
type CodeEntry struct {
	Dataset   string
	Attribute string
	Key       Value
	Title     string
}

// RawCodeRow is a code table row as read from disk, before exploding.
// Fields holds the raw `fields` cell: a list literal of dataset.attribute pairs.
type RawCodeRow struct {
	Fields string
	Key    string
	Title  string
}

// VocabularyMap substitutes one label for another. Misses pass through.
type VocabularyMap map[string]string

// RenameMap maps original column names to target column names.
type RenameMap map[string]string

// Projector converts a point in projected planar coordinates to a point in
// geographic degrees with X the longitude and Y the latitude.
type Projector interface {
	ProjectPoint(p *geom.Point) (*geom.Point, error)
}

// ProjectorFunc adapts a plain (x, y) -> (lon, lat) function to the
// Projector interface.
type ProjectorFunc func(x, y float64) (float64, float64, error)

// ProjectPoint calls f with the point's coordinates.
func (f ProjectorFunc) ProjectPoint(p *geom.Point) (*geom.Point, error) {
	lon, lat, err := f(p.X(), p.Y())
	if err != nil {
		return nil, err
	}
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}), nil
}

// Options is the configuration surface consumed by the pipeline.
type Options struct {
	AreaFilter float64 // 0 disables area filtering
	Demolished bool    // enables age-at-demolition derivation
}

// RunPhase indicates the outcome of a pipeline run.
type RunPhase string

const (
	PhaseRunning  RunPhase = "running"
	PhaseComplete RunPhase = "complete"
	PhaseFailed   RunPhase = "failed"
)

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID         string         `json:"id"`
	Dataset    string         `json:"dataset"`
	FileName   string         `json:"fileName"`
	Phase      RunPhase       `json:"phase"`
	RowsIn     int            `json:"rowsIn"`
	RowsOut    int            `json:"rowsOut"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	AreaFilter float64        `json:"areaFilter"`
	Demolished bool           `json:"demolished"`
	StartedAt  time.Time      `json:"startedAt"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
}

// StageReport summarizes what one pipeline stage did.
type StageReport struct {
	Stage    string         `json:"stage"`
	Rows     int            `json:"rows"`
	Duration time.Duration  `json:"duration"`
	Detail   map[string]int `json:"detail,omitempty"`
}

// Report is the outcome of Pipeline.Run.
type Report struct {
	RowsIn  int            `json:"rowsIn"`
	RowsOut int            `json:"rowsOut"`
	Stages  []StageReport  `json:"stages"`
	Dropped map[string]int `json:"dropped"`
}
