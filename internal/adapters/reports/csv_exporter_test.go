package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

func TestWriteAssessmentCSV(t *testing.T) {
	confidence := 96.5
	triage := entities.TriageSevere
	care := "Go to the emergency room now."
	records := []*entities.AssessmentRecord{
		{
			SymptomText: "crushing chest pain",
			Result: entities.AssessmentResult{
				IsAssessment:       true,
				PossibleConditions: "Myocardial Infarction (Heart Attack)",
				Confidence:         &confidence,
				TriageLevel:        &triage,
				CareRecommendation: &care,
			},
			CreatedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			SymptomText: "mild sore throat",
			Result: entities.AssessmentResult{
				IsQuestion:         true,
				PossibleConditions: "How long have you had the sore throat?",
			},
			CreatedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAssessmentCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Myocardial Infarction (Heart Attack)", rows[1][3])
	assert.Equal(t, "96.5", rows[1][4])
	assert.Equal(t, "SEVERE", rows[1][5])
	assert.Equal(t, "true", rows[1][2])
	assert.Equal(t, "false", rows[2][2])
	assert.Equal(t, "", rows[2][4])
}

func TestWriteAssessmentCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAssessmentCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
