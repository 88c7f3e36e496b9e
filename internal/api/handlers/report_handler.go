package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tobenna/symptom-assist/backend/internal/api/middleware"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

const defaultAssessmentListLimit = 20

// ReportService defines the report and history operations used by the handler.
type ReportService interface {
	Generate(ctx context.Context, identity entities.Identity) (*entities.ReportRecord, error)
	GetByID(ctx context.Context, identity entities.Identity, id string) (*entities.ReportRecord, error)
	ListAssessments(ctx context.Context, identity entities.Identity, limit int) ([]*entities.AssessmentRecord, error)
}

// ReportHandler handles assessment history and PDF report endpoints.
type ReportHandler struct {
	service ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GenerateReport handles POST /api/reports
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	record, err := h.service.Generate(r.Context(), identity)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, record)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "report id is required")
		return
	}

	record, err := h.service.GetByID(r.Context(), identity, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// ListAssessments handles GET /api/assessments
func (h *ReportHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := defaultAssessmentListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	records, err := h.service.ListAssessments(r.Context(), identity, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": records,
		"count":       len(records),
	})
}
