package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Mappings holds the loaded, read-only inputs of one run.
type Mappings struct {
	Definition   Definition
	Codes        *CodeIndex
	Rename       RenameMap
	Translations []Translation
	Projector    Projector
}

// StageObserver receives a report after each stage completes.
type StageObserver interface {
	ObserveStage(dataset string, r StageReport)
}

// RunObserver receives every finished run record. A StageObserver passed
// to the service that also implements RunObserver gets both.
type RunObserver interface {
	ObserveRun(rec RunRecord)
}

// Pipeline runs the preparation stages in a fixed order.
// A Pipeline holds no per-run state and may be reused.
type Pipeline struct {
	stages   []Stage
	logger   *slog.Logger
	observer StageObserver
	dataset  string
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for per-stage log lines.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers a stage observer, typically metrics.
func WithObserver(o StageObserver, dataset string) PipelineOption {
	return func(p *Pipeline) {
		p.observer = o
		p.dataset = dataset
	}
}

// NewPipeline builds the stage sequence:
// coercion, resolution, renaming, translation, projection, derivation, filtering.
func NewPipeline(m Mappings, opts Options, options ...PipelineOption) *Pipeline {
	def := m.Definition
	p := &Pipeline{
		stages: []Stage{
			&NumericCoercion{Columns: def.NumericColumns},
			&ColumnResolver{Codes: m.Codes},
			&ColumnRenamer{Rename: m.Rename},
			&ValueTranslator{Translations: m.Translations},
			&CoordinateProjector{
				Column:          def.CoordinateColumn,
				LatColumn:       def.LatColumn,
				LonColumn:       def.LonColumn,
				ConvertedColumn: def.ConvertedColumn,
				Projector:       m.Projector,
			},
			&DerivedFieldSynthesizer{
				Demolished:             opts.Demolished,
				EffectFromColumn:       def.EffectFromColumn,
				ConstructionYearColumn: def.ConstructionYearColumn,
				EventYearColumn:        def.EventYearColumn,
				AgeColumn:              def.AgeColumn,
				SentinelYear:           def.SentinelYear,
				AreaColumns:            def.AreaColumns,
				AreaColumn:             def.AreaColumn,
			},
			&RecordFilter{
				AreaColumn:    def.AreaColumn,
				AreaThreshold: opts.AreaFilter,
				StatusColumn:  def.StatusColumn,
				ExcludeStatus: def.ExcludeStatus,
			},
		},
		logger: slog.Default(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run applies every stage to t in order. The table is mutated in place.
// On error the table is left in whatever state the failing stage reached.
func (p *Pipeline) Run(ctx context.Context, t *Table) (Report, error) {
	report := Report{
		RowsIn:  t.Len(),
		Stages:  make([]StageReport, 0, len(p.stages)),
		Dropped: make(map[string]int),
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run cancelled before %s: %w", stage.Name(), err)
		}

		start := time.Now()
		detail, err := stage.Apply(t)
		if err != nil {
			p.logger.Error("stage failed", "stage", stage.Name(), "error", err)
			return report, fmt.Errorf("%s: %w", stage.Name(), err)
		}

		sr := StageReport{
			Stage:    stage.Name(),
			Rows:     t.Len(),
			Duration: time.Since(start),
			Detail:   detail,
		}
		report.Stages = append(report.Stages, sr)
		if _, ok := stage.(*RecordFilter); ok {
			for reason, n := range detail {
				report.Dropped[reason] += n
			}
		}

		p.logger.Info("stage complete",
			"stage", sr.Stage,
			"rows", sr.Rows,
			"duration_ms", sr.Duration.Milliseconds(),
		)
		if p.observer != nil {
			p.observer.ObserveStage(p.dataset, sr)
		}
	}

	report.RowsOut = t.Len()
	return report, nil
}
