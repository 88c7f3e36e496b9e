package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	apperrors "github.com/tobenna/symptom-assist/backend/pkg/errors"
)

const defaultReportEntries = 50

// ReportService builds detailed assessment reports and data exports for
// entitled identities.
type ReportService struct {
	assessments repositories.AssessmentRepository
	reports     repositories.ReportRepository
	renderer    providers.ReportRenderer
}

// NewReportService creates a new report service.
func NewReportService(
	assessments repositories.AssessmentRepository,
	reports repositories.ReportRepository,
	renderer providers.ReportRenderer,
) *ReportService {
	return &ReportService{
		assessments: assessments,
		reports:     reports,
		renderer:    renderer,
	}
}

// Generate renders a PDF report from the identity's assessment history and
// persists the record pointing at it.
func (s *ReportService) Generate(ctx context.Context, identity entities.Identity) (*entities.ReportRecord, error) {
	if err := requireEntitled(identity); err != nil {
		return nil, err
	}

	records, err := s.assessments.ListByUser(ctx, identity.UserID, defaultReportEntries)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("no assessment history to report on")
	}

	payload := &entities.ReportPayload{
		ID:          uuid.New().String(),
		UserID:      identity.UserID,
		GeneratedAt: time.Now().UTC(),
		Entries:     make([]entities.ReportEntry, 0, len(records)),
	}
	for _, record := range records {
		payload.Entries = append(payload.Entries, entities.ReportEntry{
			SymptomText: record.SymptomText,
			Result:      record.Result,
			CreatedAt:   record.CreatedAt,
		})
	}

	location, err := s.renderer.RenderReport(ctx, payload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to render report", err)
	}

	record := &entities.ReportRecord{
		ID:        payload.ID,
		UserID:    identity.UserID,
		Location:  location,
		CreatedAt: payload.GeneratedAt,
	}
	if err := s.reports.Save(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// GetByID fetches a report record owned by the identity.
func (s *ReportService) GetByID(ctx context.Context, identity entities.Identity, id string) (*entities.ReportRecord, error) {
	record, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.UserID != identity.UserID {
		return nil, apperrors.NewNotFoundError("report not found")
	}
	return record, nil
}

// ListAssessments returns the identity's persisted history for display or
// CSV export.
func (s *ReportService) ListAssessments(ctx context.Context, identity entities.Identity, limit int) ([]*entities.AssessmentRecord, error) {
	if err := requireEntitled(identity); err != nil {
		return nil, err
	}
	return s.assessments.ListByUser(ctx, identity.UserID, limit)
}

func requireEntitled(identity entities.Identity) error {
	if identity.IsTemporary() {
		return apperrors.NewUnauthorizedError("sign in to access reports")
	}
	if !identity.Tier.Entitled() {
		return apperrors.NewUpgradeRequiredError("reports require a paid or one-time purchase")
	}
	return nil
}
