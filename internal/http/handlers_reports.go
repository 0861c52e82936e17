package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/report"
)

var errQueueUnavailable = errors.New("report queue not configured")

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	mp, err := MonthParamsFromPath(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		fail(w, r, log.OpRender, err)
		return
	}
	format := chi.URLParam(r, "format")
	if format != "xlsx" && format != "pdf" {
		writeProblem(w, http.StatusNotFound, "reports are available as .xlsx or .pdf")
		return
	}

	start := time.Now()
	m, err := s.deps.Analytics.MonthlyReport(r.Context(), mp.Period(s.deps.Analytics.Location()), s.deps.School)
	if err != nil {
		metrics.ObserveReport(time.Since(start), err)
		fail(w, r, log.OpRender, err)
		return
	}

	var body []byte
	contentType := "application/pdf"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		body, err = report.BuildMonthlyXLSX(m, s.deps.Analytics.Location())
	} else {
		body, err = report.BuildMonthlyPDF(m, s.deps.Formatter)
	}
	metrics.ReportGenerated(format, err)
	metrics.ObserveReport(time.Since(start), err)
	if err != nil {
		fail(w, r, log.OpRender, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+m.FileName(format)+`"`)
	_, _ = w.Write(body)
}

// handleEnqueueReport asks the worker to build and publish the month's
// exports asynchronously.
func (s *Server) handleEnqueueReport(w http.ResponseWriter, r *http.Request) {
	mp, err := MonthParamsFromPath(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		fail(w, r, log.OpPublish, err)
		return
	}
	if s.deps.Reports == nil {
		writeProblem(w, http.StatusServiceUnavailable, errQueueUnavailable.Error())
		return
	}
	if err := s.deps.Reports.PublishReportRequested(r.Context(), mp.Year, mp.Month); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Report request publish failed", err, log.ComponentAMQP, log.OpPublish, nil)
		writeProblem(w, http.StatusServiceUnavailable, "report queue unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": mp.Year, "month": mp.Month, "status": "queued"})
}
