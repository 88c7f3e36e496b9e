package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

var csvHeader = []string{
	"created_at", "symptom_text", "is_assessment", "possible_conditions",
	"confidence", "triage_level", "care_recommendation",
}

// WriteAssessmentCSV streams assessment records as CSV rows.
func WriteAssessmentCSV(w io.Writer, records []*entities.AssessmentRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			record.SymptomText,
			strconv.FormatBool(record.Result.IsAssessment),
			record.Result.PossibleConditions,
			"",
			"",
			"",
		}
		if record.Result.Confidence != nil {
			row[4] = strconv.FormatFloat(*record.Result.Confidence, 'f', -1, 64)
		}
		if record.Result.TriageLevel != nil {
			row[5] = string(*record.Result.TriageLevel)
		}
		if record.Result.CareRecommendation != nil {
			row[6] = *record.Result.CareRecommendation
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
