package entities

import (
	"time"
)

// MinAssessmentConfidence is the floor below which a model-produced assessment
// is demoted to a follow-up question.
const MinAssessmentConfidence = 95.0

// TriageLevel classifies the severity of an assessment.
type TriageLevel string

const (
	TriageMild     TriageLevel = "MILD"
	TriageModerate TriageLevel = "MODERATE"
	TriageSevere   TriageLevel = "SEVERE"
)

// ParseTriageLevel maps a raw triage string onto the canonical vocabulary.
// The legacy LOW/MODERATE/HIGH/EMERGENCY vocabulary is still accepted.
func ParseTriageLevel(raw string) (TriageLevel, bool) {
	switch TriageLevel(raw) {
	case TriageMild, TriageModerate, TriageSevere:
		return TriageLevel(raw), true
	}
	switch raw {
	case "LOW":
		return TriageMild, true
	case "HIGH", "EMERGENCY":
		return TriageSevere, true
	}
	return "", false
}

// ConditionScore is a single candidate condition with its model confidence.
type ConditionScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// AssessmentDetail carries the structured condition breakdown, when present.
type AssessmentDetail struct {
	Conditions []ConditionScore `json:"conditions"`
}

// AssessmentResult is the normalized outcome of a single conversation turn.
// Exactly one of IsAssessment/IsQuestion is true after normalization, and
// PossibleConditions is never empty. The prior-assessment terminal state is
// the single deliberate exception, with both flags false.
type AssessmentResult struct {
	IsAssessment       bool              `json:"is_assessment"`
	IsQuestion         bool              `json:"is_question"`
	PossibleConditions string            `json:"possible_conditions"`
	Confidence         *float64          `json:"confidence"`
	TriageLevel        *TriageLevel      `json:"triage_level"`
	CareRecommendation *string           `json:"care_recommendation"`
	RequiresUpgrade    bool              `json:"requires_upgrade"`
	Assessment         *AssessmentDetail `json:"assessment,omitempty"`
}

// Clone returns a deep copy so gating can redact without mutating the original.
func (r *AssessmentResult) Clone() *AssessmentResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Confidence != nil {
		v := *r.Confidence
		clone.Confidence = &v
	}
	if r.TriageLevel != nil {
		v := *r.TriageLevel
		clone.TriageLevel = &v
	}
	if r.CareRecommendation != nil {
		v := *r.CareRecommendation
		clone.CareRecommendation = &v
	}
	if r.Assessment != nil {
		detail := AssessmentDetail{Conditions: make([]ConditionScore, len(r.Assessment.Conditions))}
		copy(detail.Conditions, r.Assessment.Conditions)
		clone.Assessment = &detail
	}
	return &clone
}

// IsSevere reports whether the result carries a SEVERE triage level.
func (r *AssessmentResult) IsSevere() bool {
	return r != nil && r.TriageLevel != nil && *r.TriageLevel == TriageSevere
}

// AssessmentRecord is the persisted audit log entry for an entitled turn.
type AssessmentRecord struct {
	ID          string           `json:"id" db:"id"`
	UserID      string           `json:"user_id" db:"user_id"`
	SessionID   string           `json:"session_id" db:"session_id"`
	SymptomText string           `json:"symptom_text" db:"symptom_text"`
	Result      AssessmentResult `json:"result" db:"result"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
