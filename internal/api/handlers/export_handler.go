package handlers

import (
	"net/http"

	"github.com/tobenna/symptom-assist/backend/internal/adapters/reports"
	"github.com/tobenna/symptom-assist/backend/internal/api/middleware"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/observability"
)

const exportLimit = 500

// ExportHandler streams assessment history as CSV.
type ExportHandler struct {
	service ReportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service ReportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportAssessments handles GET /api/export/assessments.csv
func (h *ExportHandler) ExportAssessments(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	records, err := h.service.ListAssessments(r.Context(), identity, exportLimit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.csv"`)
	w.WriteHeader(http.StatusOK)

	if err := reports.WriteAssessmentCSV(w, records); err != nil {
		// Headers are already out; the truncated body is all we can signal.
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("csv export aborted mid-stream")
	}
}
