package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/otcheredev/report-resolver/internal/adapters"
	"github.com/otcheredev/report-resolver/internal/models"
	"github.com/otcheredev/report-resolver/internal/resolver"
)

type ReportsHandler struct {
	pipeline *resolver.Pipeline
	prober   resolver.StatusProber
}

func NewReportsHandler(pipeline *resolver.Pipeline, prober resolver.StatusProber) *ReportsHandler {
	return &ReportsHandler{
		pipeline: pipeline,
		prober:   prober,
	}
}

// Resolve runs the full resolution pipeline for the identified query
func (h *ReportsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	query, err := parseReportQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := h.pipeline.Resolve(r.Context(), query)

	response := resolveResponse{ResolutionOutcome: outcome}
	if outcome.Report != nil && outcome.Report.URLKind == models.URLKindViewInline {
		if download := adapters.InlineToDownloadURL(outcome.Report.URL); download != outcome.Report.URL {
			response.DownloadURL = download
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// resolveResponse is the outcome plus the derived attachment-disposition
// variant of the view URL, when one exists
type resolveResponse struct {
	models.ResolutionOutcome
	DownloadURL string `json:"download_url,omitempty"`
}

// Status runs the lightweight status probe without a full resolution
func (h *ReportsHandler) Status(w http.ResponseWriter, r *http.Request) {
	query, err := parseReportQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.prober.ProbeStatus(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Msg("Status probe failed")
		http.Error(w, "Failed to check report status", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]models.FileStatus{"status": status})
}

// InvalidateCache drops the cached report URL for the identified query
func (h *ReportsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	query, err := parseReportQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.pipeline.Invalidate(r.Context(), query); err != nil {
		log.Error().Err(err).Msg("Failed to invalidate cached report URL")
		http.Error(w, "Failed to invalidate cache", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseReportQuery builds a ReportQuery from query parameters and insists
// on at least one identifying field
func parseReportQuery(r *http.Request) (models.ReportQuery, error) {
	q := models.ReportQuery{
		StudyID:          r.URL.Query().Get("study_id"),
		StudyInstanceUID: r.URL.Query().Get("study_iuid"),
	}

	if raw := r.URL.Query().Get("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errInvalidParam("patient_id")
		}
		q.PatientID = &id
	}
	if raw := r.URL.Query().Get("case_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errInvalidParam("case_id")
		}
		q.CaseID = &id
	}

	if !q.Identified() {
		return q, errMissingIdentity
	}
	return q, nil
}

type queryError string

func (e queryError) Error() string { return string(e) }

const errMissingIdentity = queryError("at least one of patient_id, case_id, study_id, study_iuid is required")

func errInvalidParam(name string) error {
	return queryError("invalid " + name)
}
