package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tobenna/symptom-assist/backend/pkg/errors"
)

// UserAdapter implements user lookups in Postgres.
type UserAdapter struct {
	db *sqlx.DB
}

// NewUserAdapter creates a new user adapter.
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		db: sqlx.NewDb(client.DB(), "postgres"),
	}
}

// GetByToken resolves an API token to its owning user. Token issuance lives
// outside this service; tokens arrive already validated.
func (a *UserAdapter) GetByToken(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("token is required")
	}

	var user entities.User
	query := `SELECT u.id, u.email, u.tier, u.subscription_expires_at, u.created_at, u.updated_at
		FROM users u
		JOIN api_tokens t ON t.user_id = u.id
		WHERE t.token = $1 AND (t.expires_at IS NULL OR t.expires_at > NOW())`
	if err := a.db.GetContext(ctx, &user, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewUnauthorizedError("unknown or expired token")
		}
		return nil, apperrors.NewInternalError("failed to look up user by token", err)
	}

	// An expired subscription falls back to the free tier.
	if user.Tier == entities.TierPaid && user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.Before(time.Now()) {
		user.Tier = entities.TierFree
	}

	return &user, nil
}

// UpdateTier changes a user's subscription tier. Invoked by the external
// payment confirmer once a purchase settles.
func (a *UserAdapter) UpdateTier(ctx context.Context, userID string, tier entities.SubscriptionTier) error {
	if userID == "" {
		return apperrors.NewValidationError("user id is required")
	}

	result, err := a.db.ExecContext(ctx,
		`UPDATE users SET tier = $1, updated_at = NOW() WHERE id = $2`, tier, userID)
	if err != nil {
		return apperrors.NewInternalError("failed to update user tier", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError("user not found")
	}

	return nil
}
