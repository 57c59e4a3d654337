package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
)

// ============================================================================
// Cell Typing Benchmarks
// ============================================================================

// BenchmarkParseValue benchmarks typing of raw cells.
// Every cell of every extract goes through this once.
func BenchmarkParseValue(b *testing.B) {
	testCases := []string{
		"120",
		"3.0",
		"",
		"Fritliggende enfamiliehus",
		"POINT(723456.12 6175432.5)",
		"2015-03-01T00:00:00",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseValue(tc)
		}
	}
}

// BenchmarkParseValue_Int benchmarks the most common case: integer codes.
func BenchmarkParseValue_Int(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseValue("120")
	}
}

func BenchmarkToNumeric(b *testing.B) {
	values := []Value{IntValue(5), TextValue("12.5"), TextValue("ukendt"), Missing()}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, v := range values {
			ToNumeric(v)
		}
	}
}

func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{"Original Field", `="English"`, "\ufeffDanish", `"title"`}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

func BenchmarkParsePoint(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParsePoint("POINT(723456.12 6175432.5)")
	}
}

// ============================================================================
// Streaming Benchmarks
// ============================================================================

func BenchmarkWindows1252Repairer(b *testing.B) {
	line := []byte("1,Fritliggende enfamiliehus,St\xe5l,Tegl,POINT(723456.12 6175432.5)\n")
	data := bytes.Repeat(line, 10000)

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = io.Copy(io.Discard, NewWindows1252Repairer(bytes.NewReader(data)))
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

func benchmarkTable(rows int) *Table {
	raw := make([][]string, rows)
	for i := range raw {
		raw[i] = []string{
			strconv.Itoa(i), "120", "1", "6", "1990", "2015-03-01",
			fmt.Sprintf("POINT(%d 6200000)", 700000+i), "-50", "30", "", "",
		}
	}
	return NewTableFromRows(rawHeader, raw)
}

func BenchmarkColumnResolver(b *testing.B) {
	stage := &ColumnResolver{Codes: testMappings().Codes}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tbl := benchmarkTable(1000)
		b.StartTimer()
		_, _ = stage.Apply(tbl)
	}
}

func BenchmarkPipelineRun(b *testing.B) {
	p := NewPipeline(testMappings(), Options{AreaFilter: 40, Demolished: true},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tbl := benchmarkTable(1000)
		b.StartTimer()
		if _, err := p.Run(context.Background(), tbl); err != nil {
			b.Fatal(err)
		}
	}
}
