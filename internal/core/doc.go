// Package core provides the business logic for preparing building-registry extracts.
//
// A raw BBR extract has one row per building with categorical attributes
// stored as numeric codes, Danish column names and projected coordinates.
// The package turns it into an analysis-ready table without any UI or
// transport dependency; the CLI, the HTTP server and tests all drive it the
// same way.
//
// # Pipeline
//
// [NewPipeline] builds a fixed sequence of stages, each applied to the
// whole [Table] before the next starts:
//
//  1. [NumericCoercion]: coded columns are coerced to numbers
//  2. [ColumnResolver]: codes are replaced with titles from the [CodeIndex]
//  3. [ColumnRenamer]: columns get their English names
//  4. [ValueTranslator]: Danish labels are translated; derived columns such
//     as "Building Usage Broad" read the labels as they were before the stage
//  5. [CoordinateProjector]: "POINT(x y)" becomes lat, lon and "lat lon"
//  6. [DerivedFieldSynthesizer]: age at demolition and the consolidated area
//  7. [RecordFilter]: area threshold and excluded status
//
// # Cell Typing
//
// Cells are typed once when the table is built ([ParseValue]): a token with
// a decimal point is a Float, otherwise an Int, otherwise Text. Code keys
// are typed the same way and matched on kind as well as value, so the code
// 3 never matches a cell holding 3.0.
//
// # Datasets
//
// Datasets are registered at init time using [Register]. Each
// [DatasetDefinition] pairs a column contract ([Definition]) with default
// [Options]:
//
//	core.Register(core.DatasetDefinition{
//	    Info:       core.DatasetInfo{Key: "bbr_demolitions", Group: "BBR"},
//	    Definition: core.DefaultDefinition(),
//	    Defaults:   core.Options{AreaFilter: 500, Demolished: true},
//	})
//
// # Error Handling
//
// Dirty values never fail a run. A configured column that is absent from
// the extract or from a mapping table is reported as a [*SchemaError].
// Technical errors are mapped to user-friendly messages using [MapError].
//
// # Runs
//
// [Service.Run] bounds concurrency with a [RunLimiter], loads mappings
// fresh for every run and records each outcome in a [RunStore].
package core
