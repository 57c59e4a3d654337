package database

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id          UUID PRIMARY KEY,
    dataset     TEXT NOT NULL,
    file_name   TEXT NOT NULL DEFAULT '',
    phase       TEXT NOT NULL,
    rows_in     INTEGER NOT NULL DEFAULT 0,
    rows_out    INTEGER NOT NULL DEFAULT 0,
    dropped     JSONB NOT NULL DEFAULT '{}',
    area_filter DOUBLE PRECISION NOT NULL DEFAULT 0,
    demolished  BOOLEAN NOT NULL DEFAULT FALSE,
    started_at  TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    error       TEXT
);

CREATE INDEX IF NOT EXISTS pipeline_runs_started_at_idx ON pipeline_runs (started_at DESC);
`

// EnsureSchema creates the run history table if it does not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	_, err := db.Exec(ctx, schema)
	return err
}
