package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erpsync/bling-sync/internal/models"
)

// GetConnection loads a tenant's ERP connection, nil when none exists.
func (s *PostgresStore) GetConnection(ctx context.Context, companyID string) (*models.BlingConnection, error) {
	query := `
		SELECT company_id, client_id, client_secret, access_token, refresh_token,
			expires_at, is_active, created_at, updated_at
		FROM bling_connections WHERE company_id = $1`

	var conn models.BlingConnection
	var accessToken, refreshToken sql.NullString
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&conn.CompanyID,
		&conn.ClientID,
		&conn.ClientSecret,
		&accessToken,
		&refreshToken,
		&expiresAt,
		&conn.IsActive,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	conn.AccessToken = accessToken.String
	conn.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		conn.ExpiresAt = expiresAt.Time
	}

	return &conn, nil
}

// SaveConnection creates or replaces a tenant connection.
func (s *PostgresStore) SaveConnection(ctx context.Context, conn *models.BlingConnection) error {
	query := `
		INSERT INTO bling_connections (
			company_id, client_id, client_secret, access_token, refresh_token,
			expires_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		conn.CompanyID,
		conn.ClientID,
		conn.ClientSecret,
		nullString(conn.AccessToken),
		nullString(conn.RefreshToken),
		nullTime(conn.ExpiresAt),
		conn.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// SaveConnectionTokens swaps the token pair in a single statement so readers
// never observe a partially written credential. Reactivates the connection.
func (s *PostgresStore) SaveConnectionTokens(ctx context.Context, companyID string, state models.TokenState) error {
	query := `
		UPDATE bling_connections
		SET access_token = $2,
			refresh_token = $3,
			expires_at = $4,
			is_active = TRUE,
			updated_at = NOW()
		WHERE company_id = $1`

	result, err := s.db.ExecContext(ctx, query,
		companyID,
		nullString(state.AccessToken),
		nullString(state.RefreshToken),
		nullTime(state.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save connection tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no connection found for company %s", companyID)
	}
	return nil
}

// DeactivateConnection soft-disables a connection. Credentials and tokens are
// kept; administrators deactivate, never delete.
func (s *PostgresStore) DeactivateConnection(ctx context.Context, companyID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bling_connections
		SET is_active = FALSE, updated_at = NOW()
		WHERE company_id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("failed to deactivate connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no connection found for company %s", companyID)
	}
	return nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value
}
