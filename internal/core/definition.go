package core

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// TranslationSpec names one vocabulary file and the column it applies to.
// When From is set, Column is created from the values From had before
// the translator stage started.
type TranslationSpec struct {
	Column     string `yaml:"column"`
	File       string `yaml:"file"`
	KeyField   string `yaml:"key_field"`
	ValueField string `yaml:"value_field"`
	Delimiter  string `yaml:"delimiter"`
	From       string `yaml:"from,omitempty"`
}

// DelimiterRune returns the field separator of the vocabulary file, ',' by default.
func (s TranslationSpec) DelimiterRune() rune {
	if s.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	return r
}

// Definition describes the mapping files and the column contract of a run.
type Definition struct {
	CodeTable      string `yaml:"code_table"`
	CodeTableSheet string `yaml:"code_table_sheet,omitempty"`
	ColumnNames    string `yaml:"column_names"`

	NumericColumns []string          `yaml:"numeric_columns"`
	Translations   []TranslationSpec `yaml:"translations"`

	CoordinateColumn string `yaml:"coordinate_column"`
	LatColumn        string `yaml:"lat_column"`
	LonColumn        string `yaml:"lon_column"`
	ConvertedColumn  string `yaml:"converted_column"`

	EffectFromColumn       string `yaml:"effect_from_column"`
	ConstructionYearColumn string `yaml:"construction_year_column"`
	EventYearColumn        string `yaml:"event_year_column"`
	AgeColumn              string `yaml:"age_column"`
	SentinelYear           int64  `yaml:"sentinel_year"`

	AreaColumns []string `yaml:"area_columns"`
	AreaColumn  string   `yaml:"area_column"`

	StatusColumn  string `yaml:"status_column"`
	ExcludeStatus string `yaml:"exclude_status"`
}

// DefaultDefinition returns the layout of the Danish BBR building extract.
func DefaultDefinition() Definition {
	return Definition{
		CodeTable:   "BBR_codes_all.xlsx",
		ColumnNames: "column_names.csv",
		NumericColumns: []string{
			"byg021BygningensAnvendelse",
			"byg032YdervæggensMateriale",
			"byg033Tagdækningsmateriale",
			"status",
			"byg034SupplerendeYdervæggensMateriale",
			"byg035SupplerendeTagdækningsMateriale",
			"byg026Opførelsesår",
		},
		Translations: []TranslationSpec{
			{Column: "Building Usage Broad", File: "building_usage_values.csv", KeyField: "Original Danish", ValueField: "Suggested Group", Delimiter: ";", From: "Building Usage"},
			{Column: "Building Usage", File: "building_usage_values.csv", KeyField: "Original Danish", ValueField: "English Translation", Delimiter: ";"},
			{Column: "Outer Wall Material", File: "outer_wall_material.csv", KeyField: "Danish", ValueField: "English", Delimiter: ","},
			{Column: "Supplementary Outer Wall Material", File: "outer_wall_material.csv", KeyField: "Danish", ValueField: "English", Delimiter: ","},
			{Column: "Roof Covering Material", File: "roof_covering.csv", KeyField: "Danish", ValueField: "English", Delimiter: ","},
			{Column: "Supplementary Roof Covering Material", File: "roof_covering.csv", KeyField: "Danish", ValueField: "English", Delimiter: ","},
		},
		CoordinateColumn: "Coordinate",
		LatColumn:        "lat",
		LonColumn:        "lon",
		ConvertedColumn:  "Coordinate Converted",

		EffectFromColumn:       "Effect From",
		ConstructionYearColumn: "Year of Construction",
		EventYearColumn:        "Demolition Year",
		AgeColumn:              "Building Age at Demolition",
		SentinelYear:           1000,

		AreaColumns: []string{
			"Built-up Area",
			"Total Building Area",
			"Total Commercial Area",
			"Total Residential Area",
		},
		AreaColumn: "Area",

		StatusColumn:  "Status",
		ExcludeStatus: "Fejlregistreret",
	}
}

// LoadDefinition reads a YAML file and overlays it onto DefaultDefinition.
// Keys absent from the file keep their default; lists present in the file
// replace the default list.
func LoadDefinition(path string) (Definition, error) {
	def := DefaultDefinition()
	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read definition: %w", err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse definition %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}

// Validate checks that every column name the pipeline relies on is set.
func (d Definition) Validate() error {
	var errs []string

	required := []struct {
		name  string
		value string
	}{
		{"code_table", d.CodeTable},
		{"column_names", d.ColumnNames},
		{"coordinate_column", d.CoordinateColumn},
		{"lat_column", d.LatColumn},
		{"lon_column", d.LonColumn},
		{"effect_from_column", d.EffectFromColumn},
		{"construction_year_column", d.ConstructionYearColumn},
		{"age_column", d.AgeColumn},
		{"area_column", d.AreaColumn},
		{"status_column", d.StatusColumn},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.name+" is required")
		}
	}

	if len(d.AreaColumns) == 0 {
		errs = append(errs, "area_columns must list at least one column")
	}

	for i, tr := range d.Translations {
		if tr.Column == "" || tr.File == "" || tr.KeyField == "" || tr.ValueField == "" {
			errs = append(errs, fmt.Sprintf("translations[%d]: column, file, key_field and value_field are required", i))
		}
		if utf8.RuneCountInString(tr.Delimiter) > 1 {
			errs = append(errs, fmt.Sprintf("translations[%d]: delimiter must be a single character", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("definition validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
