package providers

import (
	"context"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// ReportRenderer renders a structured report payload and returns the storage
// location of the rendered artifact.
type ReportRenderer interface {
	RenderReport(ctx context.Context, payload *entities.ReportPayload) (string, error)
}
