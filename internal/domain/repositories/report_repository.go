package repositories

import (
	"context"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// ReportRepository defines the interface for report record operations.
type ReportRepository interface {
	Save(ctx context.Context, record *entities.ReportRecord) error
	GetByID(ctx context.Context, id string) (*entities.ReportRecord, error)
}
