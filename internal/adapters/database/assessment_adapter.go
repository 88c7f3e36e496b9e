package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tobenna/symptom-assist/backend/pkg/errors"
)

// AssessmentAdapter implements assessment log persistence in Postgres.
type AssessmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAssessmentAdapter creates a new assessment adapter.
func NewAssessmentAdapter(client *postgres.Client) repositories.AssessmentRepository {
	return &AssessmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Save inserts an assessment log record. The normalized result is stored as
// a JSON document alongside the sanitized symptom text.
func (a *AssessmentAdapter) Save(ctx context.Context, record *entities.AssessmentRecord) error {
	if record == nil {
		return apperrors.NewInternalError("assessment record is nil", fmt.Errorf("record is nil"))
	}

	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return apperrors.NewInternalError("failed to serialize assessment result", err)
	}

	row := goqu.Record{
		"id":           record.ID,
		"user_id":      sql.NullString{String: record.UserID, Valid: record.UserID != ""},
		"session_id":   sql.NullString{String: record.SessionID, Valid: record.SessionID != ""},
		"symptom_text": record.SymptomText,
		"result":       string(resultJSON),
		"created_at":   record.CreatedAt,
	}

	query, args, err := a.db.Insert("assessment_logs").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build assessment insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save assessment", err)
	}

	return nil
}

// ListByUser returns the most recent assessment records for a user.
func (a *AssessmentAdapter) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.AssessmentRecord, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := a.db.From("assessment_logs").
		Select("id", "user_id", "session_id", "symptom_text", "result", "created_at").
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build assessment list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}
	defer rows.Close()

	var records []*entities.AssessmentRecord
	for rows.Next() {
		var (
			record     entities.AssessmentRecord
			userID     sql.NullString
			sessionID  sql.NullString
			resultJSON []byte
		)
		if err := rows.Scan(&record.ID, &userID, &sessionID, &record.SymptomText, &resultJSON, &record.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan assessment row", err)
		}
		record.UserID = userID.String
		record.SessionID = sessionID.String
		if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
			return nil, apperrors.NewInternalError("failed to decode stored assessment result", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate assessment rows", err)
	}

	return records, nil
}
