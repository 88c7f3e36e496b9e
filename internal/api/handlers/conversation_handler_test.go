package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobenna/symptom-assist/backend/internal/api/handlers"
	"github.com/tobenna/symptom-assist/backend/internal/api/middleware"
	"github.com/tobenna/symptom-assist/backend/internal/application/services"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

type stubConversationService struct {
	turn      *services.TurnResult
	cleared   []string
	lastInput string
}

func (s *stubConversationService) ProcessTurn(_ context.Context, _ entities.Identity, symptomText string, history []entities.ConversationTurn) (*services.TurnResult, error) {
	s.lastInput = symptomText
	if s.turn != nil {
		return s.turn, nil
	}
	result := &entities.AssessmentResult{
		IsQuestion:         true,
		PossibleConditions: "How long have you had these symptoms?",
	}
	return &services.TurnResult{
		Result:         result,
		UpdatedHistory: entities.AppendTurns(history, symptomText, result.PossibleConditions),
	}, nil
}

func (s *stubConversationService) ClearUpgradeLock(_ context.Context, identity entities.Identity) error {
	s.cleared = append(s.cleared, identity.Key())
	return nil
}

func paidRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	identity := entities.Identity{UserID: "u1", Tier: entities.TierPaid}
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func TestConversationHandler_ProcessTurn_Success(t *testing.T) {
	service := &stubConversationService{}
	handler := handlers.NewConversationHandler(service, nil)

	body := `{"symptom_text":"I have a headache","history":[]}`
	w := httptest.NewRecorder()
	handler.ProcessTurn(w, paidRequest("POST", "/api/conversation/turn", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I have a headache", service.lastInput)

	var response struct {
		Result  *entities.AssessmentResult  `json:"result"`
		History []entities.ConversationTurn `json:"history"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Result.IsQuestion)
	assert.Len(t, response.History, 2)
	assert.False(t, response.History[0].IsBot)
	assert.True(t, response.History[1].IsBot)
}

func TestConversationHandler_ProcessTurn_RequiresIdentity(t *testing.T) {
	handler := handlers.NewConversationHandler(&stubConversationService{}, nil)

	req := httptest.NewRequest("POST", "/api/conversation/turn", strings.NewReader(`{"symptom_text":"hi"}`))
	w := httptest.NewRecorder()
	handler.ProcessTurn(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConversationHandler_ProcessTurn_InvalidPayload(t *testing.T) {
	handler := handlers.NewConversationHandler(&stubConversationService{}, nil)

	w := httptest.NewRecorder()
	handler.ProcessTurn(w, paidRequest("POST", "/api/conversation/turn", `{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationHandler_ProcessTurn_MessageTooLong(t *testing.T) {
	handler := handlers.NewConversationHandler(&stubConversationService{}, nil)

	body := `{"symptom_text":"` + strings.Repeat("a", 2100) + `"}`
	w := httptest.NewRecorder()
	handler.ProcessTurn(w, paidRequest("POST", "/api/conversation/turn", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationHandler_ProcessTurn_RateLimit(t *testing.T) {
	service := &stubConversationService{}
	handler := handlers.NewConversationHandler(service, nil)

	for i := 0; i < 30; i++ {
		w := httptest.NewRecorder()
		handler.ProcessTurn(w, paidRequest("POST", "/api/conversation/turn", `{"symptom_text":"hi"}`))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ProcessTurn(w, paidRequest("POST", "/api/conversation/turn", `{"symptom_text":"hi"}`))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestConversationHandler_ClearUpgradeLock(t *testing.T) {
	service := &stubConversationService{}
	handler := handlers.NewConversationHandler(service, nil)

	w := httptest.NewRecorder()
	handler.ClearUpgradeLock(w, paidRequest("DELETE", "/api/conversation/lock", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"user:u1"}, service.cleared)
}
