package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createRun = `-- name: CreateRun :exec
INSERT INTO pipeline_runs (id, dataset, file_name, phase, area_filter, demolished, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateRunParams struct {
	ID         pgtype.UUID
	Dataset    string
	FileName   string
	Phase      string
	AreaFilter float64
	Demolished bool
	StartedAt  pgtype.Timestamptz
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.Exec(ctx, createRun,
		arg.ID,
		arg.Dataset,
		arg.FileName,
		arg.Phase,
		arg.AreaFilter,
		arg.Demolished,
		arg.StartedAt,
	)
	return err
}

const finishRun = `-- name: FinishRun :exec
UPDATE pipeline_runs
SET phase = $2, rows_in = $3, rows_out = $4, dropped = $5, duration_ms = $6, error = $7
WHERE id = $1
`

type FinishRunParams struct {
	ID         pgtype.UUID
	Phase      string
	RowsIn     int32
	RowsOut    int32
	Dropped    []byte
	DurationMs int64
	Error      pgtype.Text
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.Exec(ctx, finishRun,
		arg.ID,
		arg.Phase,
		arg.RowsIn,
		arg.RowsOut,
		arg.Dropped,
		arg.DurationMs,
		arg.Error,
	)
	return err
}

const listRuns = `-- name: ListRuns :many
SELECT id, dataset, file_name, phase, rows_in, rows_out, dropped, area_filter, demolished, started_at, duration_ms, error
FROM pipeline_runs
ORDER BY started_at DESC
LIMIT $1
`

func (q *Queries) ListRuns(ctx context.Context, limit int32) ([]PipelineRun, error) {
	rows, err := q.db.Query(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PipelineRun
	for rows.Next() {
		var i PipelineRun
		if err := rows.Scan(
			&i.ID,
			&i.Dataset,
			&i.FileName,
			&i.Phase,
			&i.RowsIn,
			&i.RowsOut,
			&i.Dropped,
			&i.AreaFilter,
			&i.Demolished,
			&i.StartedAt,
			&i.DurationMs,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const purgeRunsBefore = `-- name: PurgeRunsBefore :execrows
DELETE FROM pipeline_runs WHERE started_at < $1
`

func (q *Queries) PurgeRunsBefore(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, purgeRunsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
