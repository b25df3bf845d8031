package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// handleReportGenerate enqueues a report job and returns immediately
func (s *Server) handleReportGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic  string `json:"topic"`
		UserID string `json:"userId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		s.writeError(w, "bad_request", "missing topic", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	// Report generation outlives the HTTP request
	job := s.app.Reports.Enqueue(context.Background(), req.UserID, req.Topic)
	s.writeJSON(w, job)
}

// handleReportGet returns job status and, when complete, the sections
func (s *Server) handleReportGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["reportId"]
	job := s.app.Reports.Get(id)
	if job == nil {
		s.writeError(w, "not_found", "no report with id "+id, http.StatusNotFound)
		return
	}
	s.writeJSON(w, job)
}

// handleReportExportHTML renders a finished report as HTML
func (s *Server) handleReportExportHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportID string `json:"reportId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReportID == "" {
		s.writeError(w, "bad_request", "missing reportId", http.StatusBadRequest)
		return
	}
	doc, err := s.app.Reports.ExportHTML(req.ReportID)
	if err != nil {
		s.writeError(w, "not_found", err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(doc))
}

// handleReportExportPDF converts a finished report to PDF
func (s *Server) handleReportExportPDF(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportID string `json:"reportId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReportID == "" {
		s.writeError(w, "bad_request", "missing reportId", http.StatusBadRequest)
		return
	}
	path, err := s.app.Reports.ExportPDF(r.Context(), req.ReportID, s.app.Config.OutputsDir())
	if err != nil {
		s.writeError(w, "upstream_unavailable", err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]string{"path": path})
}
