package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"juicestand/internal/export"
	"juicestand/internal/log"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	report, err := s.reports.Report(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(newReportView(report)).Write(w)
}

// handleExportReport serves the period report as a CSV download.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	report, err := s.reports.Report(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, report); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := export.FileName(period, time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldPeriod, string(period),
		log.FieldOperation, log.OpExport,
		"buckets", len(report.Buckets))
}
