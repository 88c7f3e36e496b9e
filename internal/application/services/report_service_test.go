package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	apperrors "github.com/tobenna/symptom-assist/backend/pkg/errors"
)

type fakeRenderer struct {
	rendered *entities.ReportPayload
}

func (f *fakeRenderer) RenderReport(_ context.Context, payload *entities.ReportPayload) (string, error) {
	f.rendered = payload
	return "/reports/" + payload.ID + ".pdf", nil
}

type fakeReports struct {
	saved map[string]*entities.ReportRecord
}

func newFakeReports() *fakeReports {
	return &fakeReports{saved: make(map[string]*entities.ReportRecord)}
}

func (f *fakeReports) Save(_ context.Context, record *entities.ReportRecord) error {
	f.saved[record.ID] = record
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, id string) (*entities.ReportRecord, error) {
	record, ok := f.saved[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("report not found")
	}
	return record, nil
}

func seededAssessments() *fakeAssessments {
	confidence := 96.0
	return &fakeAssessments{saved: []*entities.AssessmentRecord{
		{
			ID:          "rec-1",
			UserID:      "u1",
			SymptomText: "burning when urinating",
			Result: entities.AssessmentResult{
				IsAssessment:       true,
				PossibleConditions: "Urinary Tract Infection (Bladder Infection)",
				Confidence:         &confidence,
			},
			CreatedAt: time.Now().UTC(),
		},
	}}
}

func TestReportService_GenerateForPaidUser(t *testing.T) {
	renderer := &fakeRenderer{}
	reports := newFakeReports()
	svc := NewReportService(seededAssessments(), reports, renderer)
	identity := entities.Identity{UserID: "u1", Tier: entities.TierPaid}

	record, err := svc.Generate(context.Background(), identity)

	require.NoError(t, err)
	assert.Equal(t, "/reports/"+record.ID+".pdf", record.Location)
	require.NotNil(t, renderer.rendered)
	assert.Len(t, renderer.rendered.Entries, 1)
	assert.Contains(t, reports.saved, record.ID)
}

func TestReportService_GenerateRequiresEntitlement(t *testing.T) {
	svc := NewReportService(seededAssessments(), newFakeReports(), &fakeRenderer{})

	_, err := svc.Generate(context.Background(), entities.Identity{UserID: "u1", Tier: entities.TierFree})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpgradeRequired))

	_, err = svc.Generate(context.Background(), entities.Identity{SessionID: "anon", Tier: entities.TierTemporary})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestReportService_GenerateWithNoHistory(t *testing.T) {
	svc := NewReportService(&fakeAssessments{}, newFakeReports(), &fakeRenderer{})

	_, err := svc.Generate(context.Background(), entities.Identity{UserID: "u1", Tier: entities.TierPaid})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestReportService_GetByIDChecksOwnership(t *testing.T) {
	reports := newFakeReports()
	reports.saved["r1"] = &entities.ReportRecord{ID: "r1", UserID: "owner"}
	svc := NewReportService(&fakeAssessments{}, reports, &fakeRenderer{})

	_, err := svc.GetByID(context.Background(), entities.Identity{UserID: "intruder", Tier: entities.TierPaid}, "r1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	record, err := svc.GetByID(context.Background(), entities.Identity{UserID: "owner", Tier: entities.TierPaid}, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", record.ID)
}
