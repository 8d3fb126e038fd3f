package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/otcheredev/report-resolver/internal/repository"
)

type AuditsHandler struct {
	repo *repository.AuditRepository
}

func NewAuditsHandler(repo *repository.AuditRepository) *AuditsHandler {
	return &AuditsHandler{repo: repo}
}

// List returns past resolution attempts for a patient or vendor study,
// most recent first
func (h *AuditsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	if raw := q.Get("patient_id"); raw != "" {
		patientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid patient_id", http.StatusBadRequest)
			return
		}
		audits, err := h.repo.GetByPatientID(r.Context(), patientID, limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list resolution audits")
			http.Error(w, "Failed to list resolution audits", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(audits)
		return
	}

	if studyID := q.Get("study_id"); studyID != "" {
		audits, err := h.repo.GetByStudyID(r.Context(), studyID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list resolution audits")
			http.Error(w, "Failed to list resolution audits", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(audits)
		return
	}

	http.Error(w, "patient_id or study_id is required", http.StatusBadRequest)
}
