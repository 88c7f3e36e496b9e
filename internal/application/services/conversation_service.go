package services

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/observability"
	"github.com/tobenna/symptom-assist/backend/pkg/utils"
)

// msgServiceUnavailable is the degraded reply when the completion provider
// cannot be reached.
const msgServiceUnavailable = "The AI service is temporarily unavailable. Please try again in a few minutes."

// TurnResult is the caller-facing outcome of one conversation turn.
type TurnResult struct {
	Result         *entities.AssessmentResult  `json:"assessment_result"`
	UpdatedHistory []entities.ConversationTurn `json:"updated_history"`
	UpgradeLocked  bool                        `json:"upgrade_locked"`
}

// ConversationService sequences one turn of the symptom conversation:
// sanitize, complete, normalize, gate, persist.
type ConversationService struct {
	completions providers.CompletionProvider
	sessions    providers.SessionStateProvider
	assessments repositories.AssessmentRepository
	gate        *EntitlementGate
	metrics     *observability.Metrics
	rng         *rand.Rand
}

// NewConversationService creates a new conversation service. rng drives
// fallback-question variation and may be nil outside tests.
func NewConversationService(
	completions providers.CompletionProvider,
	sessions providers.SessionStateProvider,
	assessments repositories.AssessmentRepository,
	gate *EntitlementGate,
	metrics *observability.Metrics,
	rng *rand.Rand,
) *ConversationService {
	return &ConversationService{
		completions: completions,
		sessions:    sessions,
		assessments: assessments,
		gate:        gate,
		metrics:     metrics,
		rng:         rng,
	}
}

// ProcessTurn runs one request/response exchange. It never returns an error
// for model or persistence failures; those degrade into conversational
// fallbacks so the caller always gets a well-formed result.
func (s *ConversationService) ProcessTurn(
	ctx context.Context,
	identity entities.Identity,
	symptomText string,
	history []entities.ConversationTurn,
) (*TurnResult, error) {
	ctx, span := observability.StartSpan(ctx, "conversation.process_turn")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	// An identity that already hit the gate stays locked until the lock is
	// cleared: no further inference is spent on it.
	locked, err := s.sessions.IsUpgradeLocked(ctx, identity.Key())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read upgrade lock, proceeding unlocked")
	}
	if locked {
		observability.RecordTurnMetric(ctx, s.metrics, "locked")
		return &TurnResult{
			Result: &entities.AssessmentResult{
				PossibleConditions: msgUpgradeRequired,
				RequiresUpgrade:    true,
			},
			UpdatedHistory: history,
			UpgradeLocked:  true,
		}, nil
	}

	sanitized := utils.SanitizeSymptomText(symptomText)
	if sanitized == "" {
		observability.RecordTurnMetric(ctx, s.metrics, "empty_input")
		return &TurnResult{
			Result:         NormalizeCompletion("", history, s.rng),
			UpdatedHistory: history,
		}, nil
	}

	raw, err := s.completions.CompleteTurn(ctx, history, sanitized)
	if err != nil {
		logger.Error().Err(err).Msg("completion provider unavailable, degrading turn")
		observability.RecordTurnMetric(ctx, s.metrics, "degraded")
		degraded := questionResult(msgServiceUnavailable)
		return &TurnResult{
			Result:         degraded,
			UpdatedHistory: entities.AppendTurns(history, sanitized, degraded.PossibleConditions),
		}, nil
	}

	normalized := NormalizeCompletion(raw, history, s.rng)
	projection, persistAllowed := s.gate.Apply(normalized, identity)

	upgradeLocked := false
	if projection.RequiresUpgrade {
		if err := s.sessions.SetUpgradeLock(ctx, identity.Key()); err != nil {
			logger.Warn().Err(err).Msg("failed to set upgrade lock")
		} else {
			upgradeLocked = true
		}
	}

	// The audit record is best-effort: the user-facing answer always wins
	// over the log write.
	if persistAllowed && normalized.IsAssessment {
		record := &entities.AssessmentRecord{
			ID:          uuid.New().String(),
			UserID:      identity.UserID,
			SessionID:   identity.SessionID,
			SymptomText: sanitized,
			Result:      *normalized,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.assessments.Save(ctx, record); err != nil {
			logger.Error().Err(err).Str("record_id", record.ID).Msg("failed to persist assessment log")
			observability.RecordPersistenceFailure(ctx, s.metrics)
		}
	}

	observability.RecordTurnMetric(ctx, s.metrics, turnOutcome(projection))

	botMessage, err := json.Marshal(projection)
	if err != nil {
		// Marshaling a plain struct cannot realistically fail; fall back to text.
		botMessage = []byte(projection.PossibleConditions)
	}

	return &TurnResult{
		Result:         projection,
		UpdatedHistory: entities.AppendTurns(history, sanitized, string(botMessage)),
		UpgradeLocked:  upgradeLocked,
	}, nil
}

// ClearUpgradeLock removes the per-identity lock, e.g. after an upgrade.
func (s *ConversationService) ClearUpgradeLock(ctx context.Context, identity entities.Identity) error {
	return s.sessions.ClearUpgradeLock(ctx, identity.Key())
}

func turnOutcome(result *entities.AssessmentResult) string {
	switch {
	case result.IsAssessment:
		return "assessment"
	case result.IsQuestion:
		return "question"
	default:
		return "suppressed"
	}
}
