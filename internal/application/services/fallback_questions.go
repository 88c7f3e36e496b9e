package services

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// rngMu serializes draws from an injected rand.Rand, which is not safe for
// concurrent use. Turns from concurrent sessions share one service instance
// and therefore one source.
var rngMu sync.Mutex

// symptomProbe pairs symptom keywords with a targeted follow-up. Every
// keyword in the group must appear in the user's text for the probe to fire.
type symptomProbe struct {
	keywords []string
	question string
}

var symptomProbes = []symptomProbe{
	{
		keywords: []string{"urinat", "burning"},
		question: "Have you noticed any burning or pain when you urinate?",
	},
	{
		keywords: []string{"headache", "vision"},
		question: "Have you noticed any changes in your vision along with the headaches?",
	},
	{
		keywords: []string{"fever", "rash"},
		question: "Where on your body did the rash first appear?",
	},
	{
		keywords: []string{"chest", "breath"},
		question: "Does the chest discomfort get worse when you breathe in or exert yourself?",
	},
}

// followUpVariations is the pool used when the conversation has already seen
// the generic prompt, so the bot does not repeat itself word for word.
var followUpVariations = []string{
	"Can you describe when the symptoms started and how they have changed?",
	"Is there anything that makes the symptoms better or worse?",
	"Have you experienced anything like this before?",
	"Are you currently taking any medication for this?",
	"How would you rate the severity on a scale of 1 to 10?",
}

// selectFallbackQuestion picks a follow-up question when the model returned
// nothing usable: a targeted probe if the user's own words match a known
// symptom pattern, a randomized variation if the generic prompt was already
// used, and the generic prompt otherwise.
func selectFallbackQuestion(history []entities.ConversationTurn, rng *rand.Rand) string {
	userText := strings.ToLower(concatUserTurns(history))

	for _, probe := range symptomProbes {
		if containsAll(userText, probe.keywords) {
			return probe.question
		}
	}

	if lastBotTurnWasGeneric(history) {
		if rng != nil {
			rngMu.Lock()
			idx := rng.Intn(len(followUpVariations))
			rngMu.Unlock()
			return followUpVariations[idx]
		}
		// The global source locks internally.
		return followUpVariations[rand.Intn(len(followUpVariations))]
	}

	return msgEmptyInput
}

func concatUserTurns(history []entities.ConversationTurn) string {
	var sb strings.Builder
	for _, turn := range history {
		if turn.IsBot {
			continue
		}
		sb.WriteString(turn.Message)
		sb.WriteString(" ")
	}
	return sb.String()
}

func containsAll(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

// lastBotTurnWasGeneric reports whether the most recent bot turn already used
// the generic prompt or one of its variations.
func lastBotTurnWasGeneric(history []entities.ConversationTurn) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsBot {
			continue
		}
		message := history[i].Message
		if strings.Contains(message, msgEmptyInput) {
			return true
		}
		for _, variation := range followUpVariations {
			if strings.Contains(message, variation) {
				return true
			}
		}
		return false
	}
	return false
}
