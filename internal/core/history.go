package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	db "github.com/JonMunkholm/bbrprep/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// RunStore persists run summaries.
type RunStore interface {
	CreateRun(ctx context.Context, rec RunRecord) error
	FinishRun(ctx context.Context, rec RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	PurgeRuns(ctx context.Context, before time.Time) (int64, error)
}

// MemoryRunStore keeps run history in memory. It is used when no database
// is configured; history is lost on restart.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]RunRecord
}

// NewMemoryRunStore creates an empty in-memory store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]RunRecord)}
}

func (m *MemoryRunStore) CreateRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.ID] = rec
	return nil
}

func (m *MemoryRunStore) FinishRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.ID]; !ok {
		return fmt.Errorf("run not found: %s", rec.ID)
	}
	m.runs[rec.ID] = rec
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (m *MemoryRunStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRunStore) PurgeRuns(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.runs {
		if r.StartedAt.Before(before) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

// PostgresRunStore persists run history in the pipeline_runs table.
type PostgresRunStore struct {
	dbtx DBTX
}

// NewPostgresRunStore wraps a pool or transaction.
func NewPostgresRunStore(dbtx DBTX) *PostgresRunStore {
	return &PostgresRunStore{dbtx: dbtx}
}

func (p *PostgresRunStore) CreateRun(ctx context.Context, rec RunRecord) error {
	id, err := parseRunID(rec.ID)
	if err != nil {
		return err
	}
	return db.New(p.dbtx).CreateRun(ctx, db.CreateRunParams{
		ID:         id,
		Dataset:    rec.Dataset,
		FileName:   rec.FileName,
		Phase:      string(rec.Phase),
		AreaFilter: rec.AreaFilter,
		Demolished: rec.Demolished,
		StartedAt:  pgtype.Timestamptz{Time: rec.StartedAt, Valid: true},
	})
}

func (p *PostgresRunStore) FinishRun(ctx context.Context, rec RunRecord) error {
	id, err := parseRunID(rec.ID)
	if err != nil {
		return err
	}
	dropped, err := json.Marshal(rec.Dropped)
	if err != nil {
		return fmt.Errorf("marshal dropped counts: %w", err)
	}
	return db.New(p.dbtx).FinishRun(ctx, db.FinishRunParams{
		ID:         id,
		Phase:      string(rec.Phase),
		RowsIn:     int32(rec.RowsIn),
		RowsOut:    int32(rec.RowsOut),
		Dropped:    dropped,
		DurationMs: rec.Duration.Milliseconds(),
		Error:      pgtype.Text{String: rec.Error, Valid: rec.Error != ""},
	})
}

func (p *PostgresRunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := db.New(p.dbtx).ListRuns(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		rec := RunRecord{
			ID:         uuid.UUID(r.ID.Bytes).String(),
			Dataset:    r.Dataset,
			FileName:   r.FileName,
			Phase:      RunPhase(r.Phase),
			RowsIn:     int(r.RowsIn),
			RowsOut:    int(r.RowsOut),
			AreaFilter: r.AreaFilter,
			Demolished: r.Demolished,
			StartedAt:  r.StartedAt.Time,
			Duration:   time.Duration(r.DurationMs) * time.Millisecond,
			Error:      r.Error.String,
		}
		if len(r.Dropped) > 0 {
			if err := json.Unmarshal(r.Dropped, &rec.Dropped); err != nil {
				return nil, fmt.Errorf("decode dropped counts for run %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *PostgresRunStore) PurgeRuns(ctx context.Context, before time.Time) (int64, error) {
	return db.New(p.dbtx).PurgeRunsBefore(ctx, pgtype.Timestamptz{Time: before, Valid: true})
}

func parseRunID(id string) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}
