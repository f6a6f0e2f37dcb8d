package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

const syncLogColumns = `
	id, company_id, sync_type, status, started_at, completed_at,
	options, result, total_processed, total_success, total_errors,
	error_message, metadata`

// CreateSyncLog inserts a new in_progress run. The partial unique index on
// (company_id, sync_type) WHERE status = 'in_progress' turns a concurrent
// duplicate trigger into a unique violation, which surfaces as
// SyncInProgressError: the check-then-insert race is resolved by the store,
// not just by the advisory check.
func (s *PostgresStore) CreateSyncLog(ctx context.Context, log *models.SyncLog) error {
	optionsJSON, err := json.Marshal(log.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal sync options: %w", err)
	}
	metadataJSON, err := marshalNullable(log.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal sync metadata: %w", err)
	}

	query := `
		INSERT INTO sync_logs (
			id, company_id, sync_type, status, started_at, options,
			total_processed, total_success, total_errors, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.ExecContext(ctx, query,
		log.ID,
		log.CompanyID,
		log.SyncType,
		log.Status,
		log.StartedAt,
		optionsJSON,
		log.TotalProcessed,
		log.TotalSuccess,
		log.TotalErrors,
		metadataJSON,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &apperrors.SyncInProgressError{CompanyID: log.CompanyID, SyncType: string(log.SyncType)}
		}
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// UpdateSyncLogProgress persists counters and the result tally. Status and
// completed_at are owned by CompleteSyncLog.
func (s *PostgresStore) UpdateSyncLogProgress(ctx context.Context, log *models.SyncLog) error {
	resultJSON, err := marshalNullable(log.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal sync result: %w", err)
	}

	query := `
		UPDATE sync_logs
		SET total_processed = $3,
			total_success = $4,
			total_errors = $5,
			result = $6
		WHERE id = $1 AND company_id = $2`

	_, err = s.db.ExecContext(ctx, query,
		log.ID,
		log.CompanyID,
		log.TotalProcessed,
		log.TotalSuccess,
		log.TotalErrors,
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync log progress: %w", err)
	}
	return nil
}

// CompleteSyncLog moves an in_progress run into a terminal state. The guard on
// the current status makes completed_at set-exactly-once: a run already in a
// terminal state is left untouched.
func (s *PostgresStore) CompleteSyncLog(ctx context.Context, companyID, id string, status models.SyncStatus, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}

	query := `
		UPDATE sync_logs
		SET status = $3,
			completed_at = NOW(),
			error_message = $4
		WHERE id = $1 AND company_id = $2 AND status = 'in_progress'`

	_, err := s.db.ExecContext(ctx, query, id, companyID, status, nullString(errorMessage))
	if err != nil {
		return fmt.Errorf("failed to complete sync log: %w", err)
	}
	return nil
}

// GetSyncLog loads a run by id within a tenant, nil when none exists.
func (s *PostgresStore) GetSyncLog(ctx context.Context, companyID, id string) (*models.SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE id = $1 AND company_id = $2`

	log, err := s.scanSyncLog(s.db.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get sync log: %w", err)
	}
	return log, nil
}

// ListSyncLogs lists a tenant's runs, newest first.
func (s *PostgresStore) ListSyncLogs(ctx context.Context, companyID string, filter *models.SyncLogFilter) ([]*models.SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE company_id = $1`
	args := []any{companyID}

	if filter != nil && filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	limit := 50
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		log, err := s.scanSyncLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log row: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log rows: %w", err)
	}
	return logs, nil
}

// HasActiveSyncForType reports whether an in_progress run exists for the
// company and type. Advisory; CreateSyncLog is the authoritative guard.
func (s *PostgresStore) HasActiveSyncForType(ctx context.Context, companyID string, syncType models.SyncType) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sync_logs
			WHERE company_id = $1 AND sync_type = $2 AND status = 'in_progress'
		)`, companyID, syncType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active syncs: %w", err)
	}
	return exists, nil
}

// GetLastCompletedSync returns the most recent completed run for the company
// and type; its completion timestamp is the checkpoint of the next run.
func (s *PostgresStore) GetLastCompletedSync(ctx context.Context, companyID string, syncType models.SyncType) (*models.SyncLog, error) {
	query := `SELECT ` + syncLogColumns + `
		FROM sync_logs
		WHERE company_id = $1 AND sync_type = $2 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1`

	log, err := s.scanSyncLog(s.db.QueryRowContext(ctx, query, companyID, syncType))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get last completed sync: %w", err)
	}
	return log, nil
}

// GetSyncStats aggregates a tenant's runs over a trailing window of days.
func (s *PostgresStore) GetSyncStats(ctx context.Context, companyID string, days int) (*models.SyncStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COALESCE(SUM(total_processed), 0),
			COALESCE(SUM(total_errors), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - started_at)) FILTER (WHERE completed_at IS NOT NULL), 0)
		FROM sync_logs
		WHERE company_id = $1 AND started_at >= NOW() - ($2 * INTERVAL '1 day')`

	stats := &models.SyncStats{CompanyID: companyID, WindowDays: days}
	err := s.db.QueryRowContext(ctx, query, companyID, days).Scan(
		&stats.TotalRuns,
		&stats.Completed,
		&stats.Failed,
		&stats.Cancelled,
		&stats.InProgress,
		&stats.TotalProcessed,
		&stats.TotalErrors,
		&stats.AvgDurationSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync stats: %w", err)
	}

	finished := stats.Completed + stats.Failed + stats.Cancelled
	if finished > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(finished)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanSyncLog(row rowScanner) (*models.SyncLog, error) {
	var log models.SyncLog
	var completedAt sql.NullTime
	var optionsJSON, resultJSON, metadataJSON []byte
	var errorMessage sql.NullString

	if err := row.Scan(
		&log.ID,
		&log.CompanyID,
		&log.SyncType,
		&log.Status,
		&log.StartedAt,
		&completedAt,
		&optionsJSON,
		&resultJSON,
		&log.TotalProcessed,
		&log.TotalSuccess,
		&log.TotalErrors,
		&errorMessage,
		&metadataJSON,
	); err != nil {
		return nil, err
	}

	if completedAt.Valid {
		log.CompletedAt = &completedAt.Time
	}
	log.ErrorMessage = errorMessage.String
	if optionsJSON != nil {
		if err := json.Unmarshal(optionsJSON, &log.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync options: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &log.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync result: %w", err)
		}
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync metadata: %w", err)
		}
	}

	return &log, nil
}

func marshalNullable(value any) ([]byte, error) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
	case models.SyncResult:
		if len(v) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(value)
}
