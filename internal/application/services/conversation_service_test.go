package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
)

type fakeCompletions struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeCompletions) CompleteTurn(_ context.Context, _ []entities.ConversationTurn, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSessions struct {
	mu     sync.Mutex
	locked map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{locked: make(map[string]bool)}
}

func (f *fakeSessions) SetUpgradeLock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked[key] = true
	return nil
}

func (f *fakeSessions) IsUpgradeLocked(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked[key], nil
}

func (f *fakeSessions) ClearUpgradeLock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locked, key)
	return nil
}

type fakeAssessments struct {
	saved   []*entities.AssessmentRecord
	saveErr error
}

func (f *fakeAssessments) Save(_ context.Context, record *entities.AssessmentRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeAssessments) ListByUser(_ context.Context, _ string, _ int) ([]*entities.AssessmentRecord, error) {
	return f.saved, nil
}

func newTestService(completions providers.CompletionProvider, sessions *fakeSessions, repo *fakeAssessments) *ConversationService {
	return NewConversationService(completions, sessions, repo, NewEntitlementGate(), nil, rand.New(rand.NewSource(1)))
}

const assessmentCompletion = `{"is_assessment": true, "is_question": false, "possible_conditions": "Urinary Tract Infection (Bladder Infection)", "confidence": 96, "triage_level": "MILD", "care_recommendation": "See a doctor within 24 hours."}`

func TestProcessTurn_EntitledAssessmentPersisted(t *testing.T) {
	completions := &fakeCompletions{response: assessmentCompletion}
	repo := &fakeAssessments{}
	svc := newTestService(completions, newFakeSessions(), repo)
	identity := entities.Identity{UserID: "u1", SessionID: "s1", Tier: entities.TierPaid}

	turn, err := svc.ProcessTurn(context.Background(), identity, "burning when I pee", nil)

	require.NoError(t, err)
	assert.True(t, turn.Result.IsAssessment)
	assert.False(t, turn.Result.RequiresUpgrade)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "u1", repo.saved[0].UserID)
	assert.Equal(t, "burning when I pee", repo.saved[0].SymptomText)
}

func TestProcessTurn_FreeTierLockedAfterAssessment(t *testing.T) {
	completions := &fakeCompletions{response: assessmentCompletion}
	sessions := newFakeSessions()
	repo := &fakeAssessments{}
	svc := newTestService(completions, sessions, repo)
	identity := entities.Identity{UserID: "u2", SessionID: "s2", Tier: entities.TierFree}

	turn, err := svc.ProcessTurn(context.Background(), identity, "burning when I pee", nil)

	require.NoError(t, err)
	assert.True(t, turn.Result.RequiresUpgrade)
	assert.True(t, turn.UpgradeLocked)
	assert.Equal(t, msgUpgradeRequired, turn.Result.PossibleConditions)
	assert.Empty(t, repo.saved, "redacted assessments are not persisted")

	// The next turn short-circuits without touching the completion provider.
	second, err := svc.ProcessTurn(context.Background(), identity, "anything else?", turn.UpdatedHistory)
	require.NoError(t, err)
	assert.True(t, second.Result.RequiresUpgrade)
	assert.True(t, second.UpgradeLocked)
	assert.Equal(t, 1, completions.calls)
}

func TestProcessTurn_ClearUpgradeLockReopensConversation(t *testing.T) {
	completions := &fakeCompletions{response: assessmentCompletion}
	sessions := newFakeSessions()
	svc := newTestService(completions, sessions, &fakeAssessments{})
	identity := entities.Identity{UserID: "u3", Tier: entities.TierFree}

	_, err := svc.ProcessTurn(context.Background(), identity, "burning when I pee", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ClearUpgradeLock(context.Background(), identity))

	_, err = svc.ProcessTurn(context.Background(), identity, "still burning", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, completions.calls)
}

func TestProcessTurn_SevereAssessmentVisibleToFreeTier(t *testing.T) {
	severe := `{"is_assessment": true, "possible_conditions": "Myocardial Infarction (Heart Attack)", "confidence": 97, "triage_level": "SEVERE", "care_recommendation": "Call emergency services now."}`
	repo := &fakeAssessments{}
	svc := newTestService(&fakeCompletions{response: severe}, newFakeSessions(), repo)
	identity := entities.Identity{SessionID: "anon-1", Tier: entities.TierTemporary}

	turn, err := svc.ProcessTurn(context.Background(), identity, "crushing chest pain", nil)

	require.NoError(t, err)
	assert.False(t, turn.Result.RequiresUpgrade)
	assert.Equal(t, "Myocardial Infarction (Heart Attack)", turn.Result.PossibleConditions)
	assert.False(t, turn.UpgradeLocked)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "anon-1", repo.saved[0].SessionID)
}

func TestProcessTurn_CompletionFailureDegrades(t *testing.T) {
	completions := &fakeCompletions{err: fmt.Errorf("%w: upstream down", providers.ErrCompletionUnavailable)}
	svc := newTestService(completions, newFakeSessions(), &fakeAssessments{})
	identity := entities.Identity{UserID: "u4", Tier: entities.TierPaid}

	turn, err := svc.ProcessTurn(context.Background(), identity, "sore throat", nil)

	require.NoError(t, err, "completion failures must degrade, not propagate")
	assert.True(t, turn.Result.IsQuestion)
	assert.Equal(t, msgServiceUnavailable, turn.Result.PossibleConditions)
	assert.Nil(t, turn.Result.TriageLevel)
}

func TestProcessTurn_EmptyInputReprompts(t *testing.T) {
	completions := &fakeCompletions{response: assessmentCompletion}
	svc := newTestService(completions, newFakeSessions(), &fakeAssessments{})
	identity := entities.Identity{UserID: "u5", Tier: entities.TierPaid}

	turn, err := svc.ProcessTurn(context.Background(), identity, "$$$///", nil)

	require.NoError(t, err)
	assert.True(t, turn.Result.IsQuestion)
	assert.Equal(t, msgEmptyInput, turn.Result.PossibleConditions)
	assert.Equal(t, 0, completions.calls)
}

func TestProcessTurn_PersistenceFailureDoesNotLoseAnswer(t *testing.T) {
	repo := &fakeAssessments{saveErr: errors.New("db down")}
	svc := newTestService(&fakeCompletions{response: assessmentCompletion}, newFakeSessions(), repo)
	identity := entities.Identity{UserID: "u6", Tier: entities.TierPaid}

	turn, err := svc.ProcessTurn(context.Background(), identity, "burning when I pee", nil)

	require.NoError(t, err)
	assert.True(t, turn.Result.IsAssessment)
	assert.Equal(t, "Urinary Tract Infection (Bladder Infection)", turn.Result.PossibleConditions)
}

func TestProcessTurn_HistoryCarriesSerializedResult(t *testing.T) {
	svc := newTestService(&fakeCompletions{response: assessmentCompletion}, newFakeSessions(), &fakeAssessments{})
	identity := entities.Identity{UserID: "u7", Tier: entities.TierPaid}

	turn, err := svc.ProcessTurn(context.Background(), identity, "burning when I pee", nil)

	require.NoError(t, err)
	require.Len(t, turn.UpdatedHistory, 2)
	assert.False(t, turn.UpdatedHistory[0].IsBot)
	assert.True(t, turn.UpdatedHistory[1].IsBot)

	var stored entities.AssessmentResult
	require.NoError(t, json.Unmarshal([]byte(turn.UpdatedHistory[1].Message), &stored))
	assert.True(t, stored.IsAssessment)

	// A follow-up question after the stored assessment is suppressed.
	followUp := NormalizeCompletion(`{"is_question": true, "possible_conditions": "Anything else?"}`, turn.UpdatedHistory, rand.New(rand.NewSource(1)))
	assert.Equal(t, msgAssessmentAlreadyProvided, followUp.PossibleConditions)
}

func TestProcessTurn_ConcurrentSessionsShareOneService(t *testing.T) {
	completions := &fakeCompletions{response: `{"is_question": true}`}
	sessions := newFakeSessions()
	svc := newTestService(completions, sessions, &fakeAssessments{})

	// The empty question forces the fallback path, and a history that
	// already saw the generic prompt forces a draw from the shared source.
	history := []entities.ConversationTurn{
		{Message: "not feeling great", IsBot: false},
		{Message: msgEmptyInput, IsBot: true},
	}

	const workers = 8
	const turnsPerWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*turnsPerWorker)
	for w := 0; w < workers; w++ {
		identity := entities.Identity{UserID: fmt.Sprintf("u%d", w), Tier: entities.TierPaid}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < turnsPerWorker; i++ {
				turn, err := svc.ProcessTurn(context.Background(), identity, "still feeling off", history)
				if err != nil {
					errs <- err
					return
				}
				if !turn.Result.IsQuestion || turn.Result.PossibleConditions == "" {
					errs <- fmt.Errorf("got malformed fallback result: %+v", turn.Result)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, workers*turnsPerWorker, completions.calls)
}

func TestProcessTurn_ConcurrentLockedAndUnlockedIdentities(t *testing.T) {
	completions := &fakeCompletions{response: `{"is_question": true, "possible_conditions": "How long has this been going on?"}`}
	sessions := newFakeSessions()
	svc := newTestService(completions, sessions, &fakeAssessments{})

	const workers = 6
	for w := 0; w < workers; w += 2 {
		require.NoError(t, sessions.SetUpgradeLock(context.Background(), fmt.Sprintf("user:u%d", w)))
	}

	var wg sync.WaitGroup
	results := make([]*TurnResult, workers)
	for w := 0; w < workers; w++ {
		identity := entities.Identity{UserID: fmt.Sprintf("u%d", w), Tier: entities.TierFree}
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			turn, err := svc.ProcessTurn(context.Background(), identity, "headache", nil)
			if assert.NoError(t, err) {
				results[w] = turn
			}
		}()
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		require.NotNil(t, results[w])
		if w%2 == 0 {
			assert.True(t, results[w].UpgradeLocked, "identity u%d should stay locked", w)
			assert.True(t, results[w].Result.RequiresUpgrade)
		} else {
			assert.False(t, results[w].UpgradeLocked, "identity u%d should not be locked", w)
			assert.True(t, results[w].Result.IsQuestion)
		}
	}
	assert.Equal(t, workers/2, completions.calls)
}
