package entities

// ConversationTurn is a single message in a symptom conversation. The history
// is caller-supplied, ordered, and append-only within a session.
type ConversationTurn struct {
	Message string `json:"message"`
	IsBot   bool   `json:"is_bot"`
}

// AppendTurns returns history extended with the user's message and the bot's
// reply, leaving the input slice untouched.
func AppendTurns(history []ConversationTurn, userMessage, botMessage string) []ConversationTurn {
	updated := make([]ConversationTurn, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		ConversationTurn{Message: userMessage, IsBot: false},
		ConversationTurn{Message: botMessage, IsBot: true},
	)
	return updated
}
