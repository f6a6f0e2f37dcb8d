package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erpsync/bling-sync/internal/models"
)

// RecordActivity appends an audit record.
func (s *PostgresStore) RecordActivity(ctx context.Context, activity *models.Activity) error {
	detailsJSON, err := marshalNullable(activity.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	query := `
		INSERT INTO activities (id, company_id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.db.ExecContext(ctx, query,
		activity.ID,
		activity.CompanyID,
		activity.UserID,
		activity.Action,
		detailsJSON,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivities returns a tenant's audit trail, newest first.
func (s *PostgresStore) ListActivities(ctx context.Context, companyID string, limit int) ([]*models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, user_id, action, details, created_at
		FROM activities
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var activity models.Activity
		var detailsJSON []byte
		if err := rows.Scan(
			&activity.ID,
			&activity.CompanyID,
			&activity.UserID,
			&activity.Action,
			&detailsJSON,
			&activity.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}

		if detailsJSON != nil {
			if err := json.Unmarshal(detailsJSON, &activity.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal activity details: %w", err)
			}
		}

		activities = append(activities, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return activities, nil
}
