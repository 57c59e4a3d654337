package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDefinition_Valid(t *testing.T) {
	def := DefaultDefinition()
	if err := def.Validate(); err != nil {
		t.Fatalf("DefaultDefinition().Validate() error = %v", err)
	}
	if len(def.Translations) != 6 {
		t.Errorf("len(Translations) = %d, want 6", len(def.Translations))
	}
	if def.Translations[0].From != "Building Usage" {
		t.Errorf("first translation From = %q, want Building Usage", def.Translations[0].From)
	}
	if def.SentinelYear != 1000 {
		t.Errorf("SentinelYear = %d, want 1000", def.SentinelYear)
	}
}

func TestLoadDefinition_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definition.yaml")
	content := `
code_table: codes.csv
exclude_status: Nedrevet
area_columns:
  - Built-up Area
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("LoadDefinition() error = %v", err)
	}
	if def.CodeTable != "codes.csv" {
		t.Errorf("CodeTable = %q, want codes.csv", def.CodeTable)
	}
	if def.ExcludeStatus != "Nedrevet" {
		t.Errorf("ExcludeStatus = %q, want Nedrevet", def.ExcludeStatus)
	}
	if len(def.AreaColumns) != 1 {
		t.Errorf("AreaColumns = %v, want one column", def.AreaColumns)
	}
	if def.CoordinateColumn != "Coordinate" {
		t.Errorf("CoordinateColumn = %q, want default kept", def.CoordinateColumn)
	}
}

func TestLoadDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "code_table: [", "parse definition"},
		{"blank required column", "status_column: \"\"", "status_column is required"},
		{"bad delimiter", "translations:\n  - {column: A, file: a.csv, key_field: k, value_field: v, delimiter: ';;'}", "single character"},
		{"incomplete translation", "translations:\n  - {column: A}", "translations[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "definition.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadDefinition(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadDefinition() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefinition_MissingFile(t *testing.T) {
	if _, err := LoadDefinition(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadDefinition() error = nil, want error")
	}
}

func TestTranslationSpec_DelimiterRune(t *testing.T) {
	if got := (TranslationSpec{}).DelimiterRune(); got != ',' {
		t.Errorf("default delimiter = %q, want ','", got)
	}
	if got := (TranslationSpec{Delimiter: ";"}).DelimiterRune(); got != ';' {
		t.Errorf("delimiter = %q, want ';'", got)
	}
}
