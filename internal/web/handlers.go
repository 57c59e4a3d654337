package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bbrprep/internal/core"
	"github.com/JonMunkholm/bbrprep/internal/logging"
	"github.com/JonMunkholm/bbrprep/internal/sink"
	"github.com/JonMunkholm/bbrprep/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory; the
// rest spills to a temporary file.
const multipartMemory = 32 << 20

var errBadParameter = errors.New("invalid parameter")

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// History is best effort on the dashboard
	runs, err := s.service.Runs(ctx, 20)
	if err != nil {
		logging.FromContext(ctx).Warn("list runs failed", "error", err)
	}

	data := templates.DashboardData{
		Groups:  templates.GroupDatasets(s.service.ListDatasets()),
		Runs:    runs,
		Limiter: s.service.Limiter().Status(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard failed", "error", err)
	}
}

// handleListDatasets returns all registered datasets.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListDatasets())
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status   string                `json:"status"`
	Database string                `json:"database,omitempty"`
	Runs     core.RunLimiterStatus `json:"runs"`
}

// handleHealthz reports liveness plus database reachability when configured.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Runs: s.service.Limiter().Status()}
	status := http.StatusOK

	if s.opts.Ping != nil {
		resp.Database = "ok"
		if err := s.opts.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check: database unreachable", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// convertResponse is the JSON summary of a conversion.
type convertResponse struct {
	Run       core.RunRecord `json:"run"`
	Report    core.Report    `json:"report"`
	BytesRead int64          `json:"bytesRead"`
}

// handleConvert runs the pipeline on an uploaded raw extract and returns
// the prepared table as CSV or XLSX, or a JSON summary for format=json.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	if _, ok := core.Get(dataset); !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownDataset, dataset), "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		// multipart does not always wrap the body error, so match the text too.
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err), "")
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: invalid form: %v", errBadParameter, err), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	format := strings.ToLower(r.FormValue("format"))
	if format != "json" {
		f, err := sink.ParseFormat(format)
		if err == nil && f != sink.FormatCSV && f != sink.FormatXLSX {
			err = fmt.Errorf("%w: %q over http", sink.ErrUnsupportedFormat, format)
		}
		if err != nil {
			s.respondError(w, r, err, "")
			return
		}
		format = string(f)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoInput, "")
		return
	}
	defer file.Close()

	req := core.RunRequest{
		Dataset:  dataset,
		FileName: header.Filename,
		Input:    file,
	}
	if req.AreaFilter, err = parseFloatParam(r.FormValue("area_filter")); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: area_filter: %v", errBadParameter, err), "")
		return
	}
	if req.Demolished, err = parseBoolParam(r.FormValue("demolished")); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: demolished: %v", errBadParameter, err), "")
		return
	}

	logger := logging.WithFields(r.Context(), "dataset", dataset, "file", header.Filename, "format", format)
	logger.Info("conversion requested", "size", header.Size)

	result, table, err := s.service.Run(r.Context(), req)
	runID := ""
	if result != nil {
		runID = result.Record.ID
	}
	if err != nil {
		s.respondError(w, r, err, runID)
		return
	}

	w.Header().Set("X-Run-ID", runID)
	if format == "json" {
		writeJSON(w, http.StatusOK, convertResponse{
			Run:       result.Record,
			Report:    result.Report,
			BytesRead: result.BytesRead,
		})
		return
	}

	f := sink.Format(format)
	var out sink.Sink = &sink.CSVWriter{W: w}
	if f == sink.FormatXLSX {
		out = &sink.XLSXWriter{W: w}
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, outputName(header.Filename, f)))

	// Headers are sent with the first byte; a failure past that point can
	// only be logged.
	if err := out.Write(context.WithoutCancel(r.Context()), table); err != nil {
		logger.Error("write converted output failed", "run_id", runID, "error", err)
	}
}

// outputName derives the download name, e.g. raw.csv -> raw_mapped.xlsx.
func outputName(upload string, f sink.Format) string {
	base := filepath.Base(upload)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "output"
	}
	return base + "_mapped" + f.Extension()
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseFloatParam returns nil for an empty value.
func parseFloatParam(val string) (*float64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return nil, errors.New("must not be negative")
	}
	return &f, nil
}

// parseBoolParam returns nil for an empty value.
func parseBoolParam(val string) (*bool, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
