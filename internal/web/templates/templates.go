// Package templates renders the dashboard HTML as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// DatasetGroup is one group of datasets on the dashboard.
type DatasetGroup struct {
	Name     string
	Datasets []core.DatasetInfo
}

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Groups  []DatasetGroup
	Runs    []core.RunRecord
	Limiter core.RunLimiterStatus
}

// GroupDatasets groups dataset infos in their listed order.
func GroupDatasets(infos []core.DatasetInfo) []DatasetGroup {
	var groups []DatasetGroup
	index := make(map[string]int)
	for _, info := range infos {
		i, ok := index[info.Group]
		if !ok {
			i = len(groups)
			index[info.Group] = i
			groups = append(groups, DatasetGroup{Name: info.Group})
		}
		groups[i].Datasets = append(groups[i].Datasets, info)
	}
	return groups
}

// Dashboard renders the full page: datasets with a convert form each,
// limiter status and recent runs.
func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>BBR preparation</title></head><body>`)
		ew.printf(`<h1>BBR preparation</h1>`)
		ew.printf(`<p class="limiter">Runs in progress: %d of %d</p>`, data.Limiter.Active, data.Limiter.MaxConcurrent)

		for _, g := range data.Groups {
			ew.printf(`<section><h2>%s</h2>`, esc(g.Name))
			for _, ds := range g.Datasets {
				if ew.err != nil {
					return ew.err
				}
				if err := datasetCard(ds).Render(ctx, ew); err != nil {
					return err
				}
			}
			ew.printf(`</section>`)
		}

		if ew.err != nil {
			return ew.err
		}
		if err := RunTable(data.Runs).Render(ctx, ew); err != nil {
			return err
		}
		ew.printf(`</body></html>`)
		return ew.err
	})
}

func datasetCard(ds core.DatasetInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		action := "/api/datasets/" + ds.Key + "/convert"
		ew.printf(`<article class="dataset"><h3>%s</h3><p>%s</p>`, esc(ds.Label), esc(ds.Description))
		ew.printf(`<form method="post" enctype="multipart/form-data" action="%s">`, esc(action))
		ew.printf(`<input type="file" name="file" accept=".csv" required>`)
		ew.printf(`<label>Area filter <input type="number" name="area_filter" min="0" step="any"></label>`)
		ew.printf(`<label>Demolished <select name="demolished"><option value="">default</option><option value="true">yes</option><option value="false">no</option></select></label>`)
		ew.printf(`<select name="format"><option value="csv">CSV</option><option value="xlsx">XLSX</option><option value="json">Summary</option></select>`)
		ew.printf(`<button type="submit">Convert</button></form></article>`)
		return ew.err
	})
}

// RunTable renders the recent-runs table.
func RunTable(runs []core.RunRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<section><h2>Recent runs</h2>`)
		if len(runs) == 0 {
			ew.printf(`<p>No runs yet.</p></section>`)
			return ew.err
		}
		ew.printf(`<table><thead><tr><th>Started</th><th>Dataset</th><th>File</th><th>Status</th><th>Rows in</th><th>Rows out</th><th>Duration</th><th>Error</th></tr></thead><tbody>`)
		for _, r := range runs {
			ew.printf(`<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				esc(string(r.Phase)),
				esc(r.StartedAt.Local().Format(time.DateTime)),
				esc(r.Dataset),
				esc(r.FileName),
				esc(string(r.Phase)),
				strconv.Itoa(r.RowsIn),
				strconv.Itoa(r.RowsOut),
				esc(r.Duration.Round(time.Millisecond).String()),
				esc(r.Error),
			)
		}
		ew.printf(`</tbody></table></section>`)
		return ew.err
	})
}

// ErrorAlert renders an error message with its code and suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="alert" role="alert"><strong>%s</strong>`, esc(message))
		if action != "" {
			ew.printf(`<p>%s</p>`, esc(action))
		}
		ew.printf(`<small>Code: %s</small></div>`, esc(code))
		return ew.err
	})
}

func esc(s string) string { return templ.EscapeString(s) }

// errWriter keeps the first write error so components can write freely
// and check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
