package repositories

import (
	"context"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// UserRepository defines the interface for user lookups and tier changes.
// Token issuance and validation live outside this service; the repository
// only resolves an already-issued token to its owner.
type UserRepository interface {
	GetByToken(ctx context.Context, token string) (*entities.User, error)
	UpdateTier(ctx context.Context, userID string, tier entities.SubscriptionTier) error
}
