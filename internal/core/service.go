package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunTimeout is the default maximum duration of one run.
var RunTimeout = 10 * time.Minute

var (
	// ErrUnknownDataset is returned for a dataset key that is not registered.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrNoInput is returned when a run request carries no input.
	ErrNoInput = errors.New("no file provided")
)

// MappingLoader loads the mapping tables a definition names.
// The returned Mappings have no Projector; the service sets it per run.
type MappingLoader interface {
	LoadMappings(ctx context.Context, def Definition) (*Mappings, error)
}

// TableReader reads a raw extract into a typed table.
type TableReader interface {
	ReadTable(r io.Reader) (*Table, error)
}

// TableReaderFunc adapts a plain function to the TableReader interface.
type TableReaderFunc func(r io.Reader) (*Table, error)

// ReadTable calls f(r).
func (f TableReaderFunc) ReadTable(r io.Reader) (*Table, error) { return f(r) }

// ProjectorFactory creates a fresh projector for one run. release frees
// any resources the projector holds and may be nil.
type ProjectorFactory func() (p Projector, release func(), err error)

// ServiceDeps wires the collaborators of a Service.
// Loader, Reader and Projectors are required.
type ServiceDeps struct {
	Loader     MappingLoader
	Reader     TableReader
	Projectors ProjectorFactory

	History  RunStore      // defaults to an in-memory store
	Limiter  *RunLimiter   // defaults to NewRunLimiter(0, 0)
	Observer StageObserver // optional, typically metrics

	// Definition replaces every dataset's column contract when set.
	Definition *Definition

	MaxFileSize int64         // 0 disables the size check
	RunTimeout  time.Duration // defaults to RunTimeout
}

// Service runs the preparation pipeline for registered datasets and keeps
// a history of runs.
type Service struct {
	loader      MappingLoader
	reader      TableReader
	projectors  ProjectorFactory
	history     RunStore
	limiter     *RunLimiter
	observer    StageObserver
	definition  *Definition
	maxFileSize int64
	runTimeout  time.Duration
}

// NewService creates a new Service instance.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Loader == nil || deps.Reader == nil || deps.Projectors == nil {
		return nil, errors.New("service requires a mapping loader, a table reader and a projector factory")
	}
	if deps.Definition != nil {
		if err := deps.Definition.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Service{
		loader:      deps.Loader,
		reader:      deps.Reader,
		projectors:  deps.Projectors,
		history:     deps.History,
		limiter:     deps.Limiter,
		observer:    deps.Observer,
		definition:  deps.Definition,
		maxFileSize: deps.MaxFileSize,
		runTimeout:  deps.RunTimeout,
	}
	if s.history == nil {
		s.history = NewMemoryRunStore()
	}
	if s.limiter == nil {
		s.limiter = NewRunLimiter(0, 0)
	}
	if s.runTimeout <= 0 {
		s.runTimeout = RunTimeout
	}
	return s, nil
}

// ListDatasets returns information about all registered datasets.
func (s *Service) ListDatasets() []DatasetInfo {
	defs := All()
	infos := make([]DatasetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Limiter exposes the run limiter for status reporting and shutdown.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// RunRequest describes one conversion. Nil overrides use the dataset defaults.
type RunRequest struct {
	Dataset    string
	FileName   string
	Input      io.Reader
	AreaFilter *float64
	Demolished *bool
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	Record    RunRecord
	Report    Report
	BytesRead int64
}

// Run converts one raw extract. The prepared table is returned for the
// caller to write with a sink. Every run, failed or not, is recorded in
// the run history.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, *Table, error) {
	ds, ok := Get(req.Dataset)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDataset, req.Dataset)
	}
	if req.Input == nil {
		return nil, nil, ErrNoInput
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	opts := ds.Defaults
	if req.AreaFilter != nil {
		opts.AreaFilter = *req.AreaFilter
	}
	if req.Demolished != nil {
		opts.Demolished = *req.Demolished
	}
	def := ds.Definition
	if s.definition != nil {
		def = *s.definition
	}

	rec := RunRecord{
		ID:         uuid.NewString(),
		Dataset:    ds.Info.Key,
		FileName:   req.FileName,
		Phase:      PhaseRunning,
		AreaFilter: opts.AreaFilter,
		Demolished: opts.Demolished,
		StartedAt:  time.Now().UTC(),
	}
	logger := slog.Default().With("run_id", rec.ID, "dataset", rec.Dataset)
	logger.Info("run started", "file", rec.FileName, "area_filter", opts.AreaFilter, "demolished", opts.Demolished)

	if err := s.history.CreateRun(ctx, rec); err != nil {
		logger.Warn("record run start failed", "error", err)
	}

	result := &RunResult{}
	table, err := s.execute(ctx, logger, def, opts, req, result)

	rec.Duration = time.Since(rec.StartedAt)
	rec.RowsIn = result.Report.RowsIn
	rec.RowsOut = result.Report.RowsOut
	rec.Dropped = result.Report.Dropped
	if err != nil {
		rec.Phase = PhaseFailed
		rec.Error = err.Error()
		logger.Error("run failed", "error", err, "duration_ms", rec.Duration.Milliseconds())
	} else {
		rec.Phase = PhaseComplete
		logger.Info("run complete",
			"rows_in", rec.RowsIn,
			"rows_out", rec.RowsOut,
			"bytes_read", result.BytesRead,
			"duration_ms", rec.Duration.Milliseconds(),
		)
	}

	// Record the outcome even when the run's context was cancelled.
	if herr := s.history.FinishRun(context.WithoutCancel(ctx), rec); herr != nil {
		logger.Warn("record run result failed", "error", herr)
	}

	if ro, ok := s.observer.(RunObserver); ok {
		ro.ObserveRun(rec)
	}

	result.Record = rec
	if err != nil {
		return result, nil, err
	}
	return result, table, nil
}

func (s *Service) execute(ctx context.Context, logger *slog.Logger, def Definition, opts Options, req RunRequest, result *RunResult) (*Table, error) {
	input, counter := WrapForStreaming(req.Input, s.maxFileSize)
	table, err := s.reader.ReadTable(input)
	result.BytesRead = counter.BytesRead
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.FileName, err)
	}
	result.Report.RowsIn = table.Len()

	maps, err := s.loader.LoadMappings(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}
	logger.Info("mappings loaded",
		"codes", maps.Codes.Len(),
		"renames", len(maps.Rename),
		"translations", len(maps.Translations),
	)

	proj, release, err := s.projectors()
	if err != nil {
		return nil, fmt.Errorf("create projection: %w", err)
	}
	if release != nil {
		defer release()
	}

	m := *maps
	m.Definition = def
	m.Projector = proj

	p := NewPipeline(m, opts, WithLogger(logger), WithObserver(s.observer, req.Dataset))
	report, err := p.Run(ctx, table)
	result.Report = report
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Runs returns the most recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.history.ListRuns(ctx, limit)
}
