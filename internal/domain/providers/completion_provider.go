package providers

import (
	"context"
	"errors"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// Completion provider failure classes. Transient failures are retried inside
// the client; callers only ever see ErrCompletionUnavailable once retries are
// exhausted or the failure is permanent.
var (
	// ErrCompletionUnavailable indicates the completion service could not
	// produce a response and the turn must degrade gracefully.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrCompletionRateLimited indicates the upstream rejected the call for
	// rate limiting; retryable.
	ErrCompletionRateLimited = errors.New("completion service rate limited")
)

// PromptMessage is a single role-tagged message sent to the completion model.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one completion call at the wire level.
type CompletionRequest struct {
	Messages  []PromptMessage
	JSONMode  bool
	MaxTokens int
}

// CompletionProvider defines the boundary to the external text-completion
// service. Implementations build their own prompt from the conversation and
// must not mutate it.
type CompletionProvider interface {
	CompleteTurn(ctx context.Context, history []entities.ConversationTurn, symptomText string) (string, error)
}
