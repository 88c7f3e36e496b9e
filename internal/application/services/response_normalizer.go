package services

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// Conversational fallback messages. Every normalizer code path resolves to a
// well-formed result carrying one of these or the model's own text; parse and
// repair failures never surface as errors.
const (
	msgEmptyInput = "Could you tell me more about your symptoms?"

	msgTroubleUnderstanding = "I had trouble understanding that. Could you describe your symptoms in a bit more detail?"

	msgNeedMoreDetails = "I need a few more details before I can give an assessment. Could you describe your symptoms more specifically?"

	msgAssessmentAlreadyProvided = "An assessment has already been provided for this conversation. If you have new or different symptoms, please start a new conversation."

	msgProcessingIssue = "There was an issue processing your information. Could you try describing your symptoms again?"
)

// conditionSuffixArtifact is a literal the model sometimes appends to
// condition names.
const conditionSuffixArtifact = "(Medical Condition)"

// rawCompletion mirrors the JSON shape the model is asked to produce.
// Pointers distinguish absent fields from zero values so defaulting can run.
type rawCompletion struct {
	IsAssessment       *bool                      `json:"is_assessment"`
	IsQuestion         *bool                      `json:"is_question"`
	PossibleConditions interface{}                `json:"possible_conditions"`
	Confidence         *float64                   `json:"confidence"`
	TriageLevel        *string                    `json:"triage_level"`
	CareRecommendation *string                    `json:"care_recommendation"`
	Assessment         *entities.AssessmentDetail `json:"assessment"`
}

// NormalizeCompletion repairs a raw model completion into a policy-compliant
// AssessmentResult. It is a pure function of its arguments (rng is the
// injectable randomness for fallback-question variation; nil uses the global
// source) and is idempotent: feeding its serialized output back in yields the
// same result. It never panics and never returns nil.
func NormalizeCompletion(raw string, history []entities.ConversationTurn, rng *rand.Rand) (result *entities.AssessmentResult) {
	defer func() {
		if r := recover(); r != nil {
			result = questionResult(msgProcessingIssue)
		}
	}()

	// 1. Empty input short-circuits to the canonical re-prompt.
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return questionResult(msgEmptyInput)
	}

	// 2. Parse. A completion that is not valid JSON is terminal: either the
	// text reads as a question and is passed through verbatim, or the turn
	// degrades to the generic re-prompt.
	var parsed rawCompletion
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		if strings.Contains(trimmed, "?") {
			return questionResult(trimmed)
		}
		return questionResult(msgTroubleUnderstanding)
	}

	// 3. Defaults for missing fields. Confidence, triage and care
	// recommendation may legitimately stay null.
	result = &entities.AssessmentResult{
		IsAssessment:       parsed.IsAssessment != nil && *parsed.IsAssessment,
		IsQuestion:         parsed.IsQuestion != nil && *parsed.IsQuestion,
		PossibleConditions: flattenConditions(parsed.PossibleConditions),
		Confidence:         parsed.Confidence,
		CareRecommendation: parsed.CareRecommendation,
		Assessment:         parsed.Assessment,
	}
	if parsed.TriageLevel != nil {
		if level, ok := entities.ParseTriageLevel(strings.ToUpper(strings.TrimSpace(*parsed.TriageLevel))); ok {
			result.TriageLevel = &level
		}
	}
	if !result.IsAssessment && !result.IsQuestion {
		result.IsQuestion = true
	}

	// 4. A closed case stays closed: once a high-confidence assessment is in
	// the history, anything short of a new assessment is suppressed.
	if !result.IsAssessment && hasPriorAssessment(history) {
		return &entities.AssessmentResult{
			PossibleConditions: msgAssessmentAlreadyProvided,
		}
	}

	// 5. Synthesize a follow-up question when the model returned nothing to say.
	if result.PossibleConditions == "" && !result.IsAssessment {
		result.IsQuestion = true
		result.PossibleConditions = selectFallbackQuestion(history, rng)
	}

	// 6. Question wins when the model claims both.
	if result.IsAssessment && result.IsQuestion {
		result.IsAssessment = false
	}

	if result.IsAssessment {
		// 7. Confidence gate: anything below the floor is demoted to a question.
		confidence := effectiveConfidence(result)
		if confidence == nil || *confidence < entities.MinAssessmentConfidence || result.PossibleConditions == "" {
			return questionResult(msgNeedMoreDetails)
		}
		result.Confidence = confidence

		// 8. Scrub markdown emphasis and suffix artifacts from condition names.
		result.PossibleConditions = cleanConditionName(result.PossibleConditions)
		if result.Assessment != nil {
			for i := range result.Assessment.Conditions {
				result.Assessment.Conditions[i].Name = cleanConditionName(result.Assessment.Conditions[i].Name)
			}
		}
	} else {
		// Assessment-only fields never travel on a question.
		result.Confidence = nil
		result.TriageLevel = nil
		result.CareRecommendation = nil
		result.Assessment = nil

		// A both-flags result demoted with nothing to say still needs a question.
		if result.PossibleConditions == "" {
			result.PossibleConditions = selectFallbackQuestion(history, rng)
		}

		// 9. One question at a time.
		result.PossibleConditions = firstQuestion(result.PossibleConditions)
	}

	return result
}

// questionResult builds a bare follow-up question result.
func questionResult(text string) *entities.AssessmentResult {
	return &entities.AssessmentResult{
		IsQuestion:         true,
		PossibleConditions: strings.TrimSpace(text),
	}
}

// flattenConditions accepts the string or list forms the model produces.
func flattenConditions(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// hasPriorAssessment scans the history newest-first for a bot turn whose
// payload was a high-confidence assessment.
func hasPriorAssessment(history []entities.ConversationTurn) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsBot {
			continue
		}
		var prior entities.AssessmentResult
		if err := json.Unmarshal([]byte(history[i].Message), &prior); err != nil {
			continue
		}
		if prior.IsAssessment && prior.Confidence != nil && *prior.Confidence >= entities.MinAssessmentConfidence {
			return true
		}
	}
	return false
}

// effectiveConfidence combines the explicit confidence with the best nested
// condition score, taking the higher of the two, clamped to [0,100].
func effectiveConfidence(result *entities.AssessmentResult) *float64 {
	var best *float64
	if result.Confidence != nil {
		v := *result.Confidence
		best = &v
	}
	if result.Assessment != nil {
		for _, cond := range result.Assessment.Conditions {
			if cond.Name == "" {
				continue
			}
			if best == nil || cond.Confidence > *best {
				v := cond.Confidence
				best = &v
			}
		}
	}
	if best == nil {
		return nil
	}
	clamped := math.Min(100, math.Max(0, *best))
	return &clamped
}

// cleanConditionName strips stray markdown emphasis and the literal
// "(Medical Condition)" suffix artifact.
func cleanConditionName(name string) string {
	cleaned := strings.ReplaceAll(name, "*", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, conditionSuffixArtifact)
	return strings.TrimSpace(cleaned)
}

// firstQuestion truncates multi-question text to the first sentence ending
// in a question mark.
func firstQuestion(text string) string {
	if strings.Count(text, "?") <= 1 {
		return text
	}
	idx := strings.Index(text, "?")
	return strings.TrimSpace(text[:idx+1])
}
