package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tobenna/symptom-assist/backend/internal/api/middleware"
	"github.com/tobenna/symptom-assist/backend/internal/application/services"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/pkg/utils"
)

const (
	turnRateLimit  = 30
	turnRateWindow = time.Minute
	maxHistoryLen  = 100
)

// ConversationService defines the turn operations used by the handler.
type ConversationService interface {
	ProcessTurn(ctx context.Context, identity entities.Identity, symptomText string, history []entities.ConversationTurn) (*services.TurnResult, error)
	ClearUpgradeLock(ctx context.Context, identity entities.Identity) error
}

// ConversationHandler handles symptom conversation turns.
type ConversationHandler struct {
	service ConversationService
	cache   providers.CacheProvider
	local   *localRateLimiter
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(service ConversationService, cache providers.CacheProvider) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		cache:   cache,
		local:   newLocalRateLimiter(),
	}
}

type turnRequest struct {
	SymptomText string                      `json:"symptom_text"`
	History     []entities.ConversationTurn `json:"history"`
}

type turnResponse struct {
	Result        *entities.AssessmentResult  `json:"result"`
	History       []entities.ConversationTurn `json:"history"`
	UpgradeLocked bool                        `json:"upgrade_locked"`
}

// ProcessTurn handles POST /api/conversation/turn
func (h *ConversationHandler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if len(payload.SymptomText) > utils.MaxSymptomLength*2 {
		respondWithError(w, http.StatusBadRequest, "symptom_text is too long")
		return
	}
	if len(payload.History) > maxHistoryLen {
		respondWithError(w, http.StatusBadRequest, "history is too long")
		return
	}

	key := "turn:rate:" + identity.Key() + ":" + clientIP(r)
	allowed, retryAfter := h.allowRequest(r.Context(), key)
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	turn, err := h.service.ProcessTurn(r.Context(), identity, payload.SymptomText, payload.History)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, turnResponse{
		Result:        turn.Result,
		History:       turn.UpdatedHistory,
		UpgradeLocked: turn.UpgradeLocked,
	})
}

// ClearUpgradeLock handles DELETE /api/conversation/lock
func (h *ConversationHandler) ClearUpgradeLock(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.service.ClearUpgradeLock(r.Context(), identity); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "cleared",
	})
}

func (h *ConversationHandler) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	if h.cache == nil {
		return h.local.allow(key, turnRateLimit, turnRateWindow)
	}

	state := rateLimitState{}
	if data, err := h.cache.Get(ctx, key); err == nil {
		_ = json.Unmarshal(data, &state)
	}

	if state.Count >= turnRateLimit {
		return false, turnRateWindow
	}

	state.Count++
	data, _ := json.Marshal(state)
	_ = h.cache.Set(ctx, key, data, turnRateWindow)
	return true, turnRateWindow
}

type rateLimitState struct {
	Count int `json:"count"`
}
