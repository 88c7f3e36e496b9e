package repositories

import (
	"context"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// AssessmentRepository defines the interface for assessment log operations.
type AssessmentRepository interface {
	Save(ctx context.Context, record *entities.AssessmentRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.AssessmentRecord, error)
}
