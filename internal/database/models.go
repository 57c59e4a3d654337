package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type PipelineRun struct {
	ID         pgtype.UUID
	Dataset    string
	FileName   string
	Phase      string
	RowsIn     int32
	RowsOut    int32
	Dropped    []byte
	AreaFilter float64
	Demolished bool
	StartedAt  pgtype.Timestamptz
	DurationMs int64
	Error      pgtype.Text
}
