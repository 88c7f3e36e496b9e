package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/postgres"
)

func setupAssessmentAdapter(t *testing.T) (*AssessmentAdapter, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	adapter := NewAssessmentAdapter(postgres.NewClientFromDB(mockDB)).(*AssessmentAdapter)
	return adapter, mock
}

func sampleRecord() *entities.AssessmentRecord {
	confidence := 96.0
	triage := entities.TriageModerate
	care := "See a doctor within 24 hours."
	return &entities.AssessmentRecord{
		ID:          "rec-1",
		UserID:      "user-1",
		SessionID:   "sess-1",
		SymptomText: "burning when urinating",
		Result: entities.AssessmentResult{
			IsAssessment:       true,
			PossibleConditions: "Urinary Tract Infection (Bladder Infection)",
			Confidence:         &confidence,
			TriageLevel:        &triage,
			CareRecommendation: &care,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestAssessmentAdapter_Save(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	mock.ExpectExec(`INSERT INTO "assessment_logs"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.Save(context.Background(), sampleRecord())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_Save_NilRecord(t *testing.T) {
	adapter, _ := setupAssessmentAdapter(t)
	assert.Error(t, adapter.Save(context.Background(), nil))
}

func TestAssessmentAdapter_ListByUser(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	resultJSON := `{"is_assessment":true,"is_question":false,"possible_conditions":"Migraine (Severe Headache)","confidence":97,"triage_level":"MODERATE","care_recommendation":"Rest and hydrate.","requires_upgrade":false}`
	rows := sqlmock.NewRows([]string{"id", "user_id", "session_id", "symptom_text", "result", "created_at"}).
		AddRow("rec-1", "user-1", "sess-1", "pounding headache", []byte(resultJSON), time.Now())

	mock.ExpectQuery(`SELECT .+ FROM "assessment_logs"`).
		WillReturnRows(rows)

	records, err := adapter.ListByUser(context.Background(), "user-1", 10)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Result.IsAssessment)
	assert.Equal(t, "Migraine (Severe Headache)", records[0].Result.PossibleConditions)
	require.NotNil(t, records[0].Result.Confidence)
	assert.Equal(t, 97.0, *records[0].Result.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_ListByUser_RequiresUserID(t *testing.T) {
	adapter, _ := setupAssessmentAdapter(t)
	_, err := adapter.ListByUser(context.Background(), "", 10)
	assert.Error(t, err)
}
