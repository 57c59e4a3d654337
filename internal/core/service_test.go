package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type stubLoader struct {
	maps *Mappings
	err  error
}

func (l stubLoader) LoadMappings(context.Context, Definition) (*Mappings, error) {
	if l.err != nil {
		return nil, l.err
	}
	m := *l.maps
	return &m, nil
}

func csvTableReader(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}
	return NewTableFromRows(records[0], records[1:]), nil
}

const rawCSV = `id,byg021BygningensAnvendelse,byg032YdervæggensMateriale,status,byg026Opførelsesår,virkningFra,byg404Koordinat,byg041BebyggetAreal,byg038SamletBygningsareal,byg039BygningensSamledeBoligAreal,byg040BygningensSamledeErhvervsAreal
1,120,1,6,1990,2015-03-01T00:00:00,POINT(700000 6200000),-50,30,,
2,999,1,3,1000,2016-01-01,garbage,10,,,
3,120,A,6,,2020,,,,,
`

func registerTestDataset(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	def := testMappings().Definition
	Register(DatasetDefinition{
		Info:       DatasetInfo{Key: "test_buildings", Group: "BBR"},
		Definition: def,
		Defaults:   Options{AreaFilter: 0, Demolished: true},
	})
}

func newTestService(t *testing.T, loader MappingLoader) (*Service, *MemoryRunStore) {
	t.Helper()
	store := NewMemoryRunStore()
	svc, err := NewService(ServiceDeps{
		Loader: loader,
		Reader: TableReaderFunc(csvTableReader),
		Projectors: func() (Projector, func(), error) {
			return testMappings().Projector, func() {}, nil
		},
		History: store,
		Limiter: NewRunLimiter(1, time.Second),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, store
}

func TestService_Run(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	svc, store := newTestService(t, stubLoader{maps: &maps})

	result, table, err := svc.Run(context.Background(), RunRequest{
		Dataset:  "test_buildings",
		FileName: "raw.csv",
		Input:    strings.NewReader(rawCSV),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if table.Len() != 2 {
		t.Errorf("table rows = %d, want 2", table.Len())
	}
	if result.Record.Phase != PhaseComplete || result.Record.RowsIn != 3 || result.Record.RowsOut != 2 {
		t.Errorf("Record = %+v, want complete 3 -> 2", result.Record)
	}
	if !result.Record.Demolished {
		t.Error("dataset default demolished not applied")
	}
	if result.BytesRead != int64(len(rawCSV)) {
		t.Errorf("BytesRead = %d, want %d", result.BytesRead, len(rawCSV))
	}
	if got := table.Rows[0]["Building Age at Demolition"]; !got.Equal(FloatValue(25)) {
		t.Errorf("age = %#v, want 25.0", got)
	}

	runs, _ := store.ListRuns(context.Background(), 10)
	if len(runs) != 1 || runs[0].ID != result.Record.ID || runs[0].Phase != PhaseComplete {
		t.Errorf("history = %+v, want the completed run", runs)
	}
}

func TestService_Run_Overrides(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	svc, _ := newTestService(t, stubLoader{maps: &maps})

	area := 40.0
	demolished := false
	result, table, err := svc.Run(context.Background(), RunRequest{
		Dataset:    "test_buildings",
		Input:      strings.NewReader(rawCSV),
		AreaFilter: &area,
		Demolished: &demolished,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if table.Len() != 1 || result.Record.Dropped[DropArea] != 2 {
		t.Errorf("rows = %d dropped = %v, want 1 row and 2 area drops", table.Len(), result.Record.Dropped)
	}
	if table.HasColumn("Building Age at Demolition") {
		t.Error("demolished override ignored")
	}
}

func TestService_Run_Failures(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	delete(maps.Rename, "byg404Koordinat")

	tests := []struct {
		name     string
		loader   MappingLoader
		req      RunRequest
		wantErr  string
		recorded bool
	}{
		{
			name:    "unknown dataset",
			loader:  stubLoader{maps: &maps},
			req:     RunRequest{Dataset: "nope", Input: strings.NewReader(rawCSV)},
			wantErr: "unknown dataset",
		},
		{
			name:    "no input",
			loader:  stubLoader{maps: &maps},
			req:     RunRequest{Dataset: "test_buildings"},
			wantErr: "no file provided",
		},
		{
			name:     "schema error",
			loader:   stubLoader{maps: &maps},
			req:      RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)},
			wantErr:  "missing required column for project_coordinates",
			recorded: true,
		},
		{
			name:     "mapping load error",
			loader:   stubLoader{err: errors.New("open mapping column_names.csv: no such file")},
			req:      RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)},
			wantErr:  "open mapping",
			recorded: true,
		},
		{
			name:     "empty input",
			loader:   stubLoader{maps: &maps},
			req:      RunRequest{Dataset: "test_buildings", Input: strings.NewReader("")},
			wantErr:  "empty file",
			recorded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, tt.loader)
			_, table, err := svc.Run(context.Background(), tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Run() error = %v, want containing %q", err, tt.wantErr)
			}
			if table != nil {
				t.Error("table returned on failure")
			}

			runs, _ := store.ListRuns(context.Background(), 10)
			if tt.recorded {
				if len(runs) != 1 || runs[0].Phase != PhaseFailed || runs[0].Error == "" {
					t.Errorf("history = %+v, want one failed run", runs)
				}
			} else if len(runs) != 0 {
				t.Errorf("history = %+v, want none", runs)
			}
		})
	}
}

func TestService_Run_SchemaErrorIsTyped(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	delete(maps.Rename, "status")
	svc, _ := newTestService(t, stubLoader{maps: &maps})

	_, _, err := svc.Run(context.Background(), RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)})
	if !IsSchemaError(err) {
		t.Errorf("Run() error = %v, want SchemaError", err)
	}
}

func TestService_Run_FileTooLarge(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	svc, err := NewService(ServiceDeps{
		Loader:      stubLoader{maps: &maps},
		Reader:      TableReaderFunc(csvTableReader),
		Projectors:  func() (Projector, func(), error) { return maps.Projector, nil, nil },
		MaxFileSize: 64,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = svc.Run(context.Background(), RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Run() error = %v, want ErrFileTooLarge", err)
	}
}

func TestService_Runs(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	svc, _ := newTestService(t, stubLoader{maps: &maps})

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Run(context.Background(), RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := svc.Runs(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("len(Runs(2)) = %d, want 2", len(runs))
	}
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	if _, err := NewService(ServiceDeps{}); err == nil {
		t.Error("NewService() error = nil, want error")
	}
}

func TestMemoryRunStore_Purge(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()
	now := time.Now()
	_ = store.CreateRun(ctx, RunRecord{ID: "old", StartedAt: now.AddDate(0, 0, -40)})
	_ = store.CreateRun(ctx, RunRecord{ID: "new", StartedAt: now})

	n, err := store.PurgeRuns(ctx, now.AddDate(0, 0, -30))
	if err != nil || n != 1 {
		t.Fatalf("PurgeRuns() = %d, %v, want 1, nil", n, err)
	}
	runs, _ := store.ListRuns(ctx, 0)
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Errorf("remaining runs = %+v, want only new", runs)
	}
	if err := store.FinishRun(ctx, RunRecord{ID: "old"}); err == nil {
		t.Error("FinishRun() on purged run error = nil, want error")
	}
}

func TestService_Run_Observer(t *testing.T) {
	registerTestDataset(t)
	maps := testMappings()
	obs := &recordingObserver{}
	svc, err := NewService(ServiceDeps{
		Loader:     stubLoader{maps: &maps},
		Reader:     TableReaderFunc(csvTableReader),
		Projectors: func() (Projector, func(), error) { return maps.Projector, nil, nil },
		Observer:   obs,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Run(context.Background(), RunRequest{Dataset: "test_buildings", Input: strings.NewReader(rawCSV)}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(obs.stages) != 7 || obs.stages[0] != "test_buildings:numeric_coercion" {
		t.Errorf("observed stages %v", obs.stages)
	}
	if len(obs.runs) != 1 || obs.runs[0].Phase != PhaseComplete {
		t.Errorf("observed runs %+v, want one complete run", obs.runs)
	}
}
