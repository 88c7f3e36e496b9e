package openai

import (
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
)

const triageSystemPrompt = `You are a careful medical triage assistant. Given a patient's symptom description and the conversation so far, either ask ONE clarifying follow-up question or, when you are at least 95% confident, give an assessment. Return ONLY valid JSON with this schema:
{
  "is_assessment": boolean,
  "is_question": boolean (exactly one of is_assessment/is_question must be true),
  "possible_conditions": string (a single follow-up question, or a condition formatted as "Medical Term (Common Name)"),
  "confidence": number 0-100 (only when is_assessment is true),
  "triage_level": "MILD" | "MODERATE" | "SEVERE" (only when is_assessment is true),
  "care_recommendation": string (only when is_assessment is true),
  "assessment": { "conditions": [ { "name": string, "confidence": number } ] } (optional, only when is_assessment is true)
}
Never give an assessment below 95% confidence; ask a question instead. Ask one question at a time. Use simple, non-alarmist language. If symptoms suggest an emergency, set triage_level to "SEVERE" and advise immediate care.`

// BuildTurnMessages assembles the role-tagged prompt for one conversation
// turn: the system prompt, the prior history, and the new sanitized input.
func BuildTurnMessages(history []entities.ConversationTurn, symptomText string) []providers.PromptMessage {
	messages := make([]providers.PromptMessage, 0, len(history)+2)
	messages = append(messages, providers.PromptMessage{Role: "system", Content: triageSystemPrompt})

	for _, turn := range history {
		role := "user"
		if turn.IsBot {
			role = "assistant"
		}
		messages = append(messages, providers.PromptMessage{Role: role, Content: turn.Message})
	}

	messages = append(messages, providers.PromptMessage{Role: "user", Content: symptomText})
	return messages
}
