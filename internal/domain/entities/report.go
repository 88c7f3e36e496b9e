package entities

import (
	"time"
)

// ReportEntry is one assessment row inside a rendered report.
type ReportEntry struct {
	SymptomText string           `json:"symptom_text"`
	Result      AssessmentResult `json:"result"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ReportPayload is the structured input handed to the report renderer.
type ReportPayload struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []ReportEntry `json:"entries"`
}

// ReportRecord is the persisted pointer to a rendered report.
type ReportRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Location  string    `json:"location" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
