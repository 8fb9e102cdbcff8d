package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/summary"
	"github.com/JonMunkholm/postventa/internal/web/templates"
)

const (
	defaultRecordLimit = 10
	maxRecordLimit     = 500
)

// reportFileName is the download name of /report.pdf.
const reportFileName = "informe_postventa.pdf"

func (s *Server) summaryOptions() summary.Options {
	return summary.Options{
		TopUnits:    s.cfg.Report.TopUnits,
		TopChapters: s.cfg.Report.TopChapters,
	}
}

func (s *Server) computeSummary(r *http.Request) (*summary.Summary, error) {
	return summary.Compute(r.Context(), s.store, s.summaryOptions())
}

// handleDashboard renders the summary and, without auth, the upload form.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.computeSummary(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	page := templates.Layout(s.renderer.Title(), templates.Dashboard(templates.DashboardData{
		ReportHTML:    s.renderer.HTML(sum),
		Backend:       s.store.Backend(),
		Inserted:      r.URL.Query().Get("inserted"),
		ImportBusy:    s.ingest.Limiter().Active() > 0,
		UploadEnabled: !s.cfg.Security.RequireAPIKey,
	}))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleHealth reports the store backend and the writer slot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Total(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{
		"status":  "ok",
		"backend": s.store.Backend(),
		"ingest":  s.ingest.Limiter().Status(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.computeSummary(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, sum)
}

// parseLimit reads ?limit, falling back to def and capping at maxRecordLimit.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidLimit, raw)
	}
	return min(n, maxRecordLimit), nil
}

// handleRecords returns the first stored records.
// ?limit defaults to 10 and is capped at 500.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultRecordLimit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	records, err := s.store.Head(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, records)
}

// handleCounts groups the history by one column. Without ?limit every
// group is returned.
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	dim, err := store.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	limit, err := parseLimit(r, 0)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	counts, err := s.store.CountBy(r.Context(), dim, limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, counts)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.Columns(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, cols)
}

// handleReportPDF renders the current history as a PDF download.
// The document is buffered so failures still get an error response.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	sum, err := s.computeSummary(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.PDF(&buf, sum); err != nil {
		s.respondError(w, r, fmt.Errorf("render pdf: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write pdf", "error", err)
	}
}
