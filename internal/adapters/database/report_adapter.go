package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tobenna/symptom-assist/backend/pkg/errors"
)

// ReportAdapter implements report record persistence in Postgres.
type ReportAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReportAdapter creates a new report adapter.
func NewReportAdapter(client *postgres.Client) repositories.ReportRepository {
	return &ReportAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Save inserts a report record.
func (a *ReportAdapter) Save(ctx context.Context, record *entities.ReportRecord) error {
	if record == nil {
		return apperrors.NewInternalError("report record is nil", fmt.Errorf("record is nil"))
	}

	row := goqu.Record{
		"id":         record.ID,
		"user_id":    record.UserID,
		"location":   record.Location,
		"created_at": record.CreatedAt,
	}

	query, args, err := a.db.Insert("reports").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build report insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save report", err)
	}

	return nil
}

// GetByID fetches a report record by id.
func (a *ReportAdapter) GetByID(ctx context.Context, id string) (*entities.ReportRecord, error) {
	query, args, err := a.db.From("reports").
		Select("id", "user_id", "location", "created_at").
		Where(goqu.Ex{"id": id}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build report select query", err)
	}

	var record entities.ReportRecord
	row := a.client.DB().QueryRowContext(ctx, query, args...)
	if err := row.Scan(&record.ID, &record.UserID, &record.Location, &record.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError("report not found")
		}
		return nil, apperrors.NewInternalError("failed to fetch report", err)
	}

	return &record, nil
}
