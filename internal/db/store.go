package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/erpsync/bling-sync/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

// Store defines the interface for database operations
type Store interface {
	// Connection operations
	GetConnection(ctx context.Context, companyID string) (*models.BlingConnection, error)
	SaveConnection(ctx context.Context, conn *models.BlingConnection) error
	SaveConnectionTokens(ctx context.Context, companyID string, state models.TokenState) error
	DeactivateConnection(ctx context.Context, companyID string) error

	// Sync log operations
	CreateSyncLog(ctx context.Context, log *models.SyncLog) error
	UpdateSyncLogProgress(ctx context.Context, log *models.SyncLog) error
	CompleteSyncLog(ctx context.Context, companyID, id string, status models.SyncStatus, errorMessage string) error
	GetSyncLog(ctx context.Context, companyID, id string) (*models.SyncLog, error)
	ListSyncLogs(ctx context.Context, companyID string, filter *models.SyncLogFilter) ([]*models.SyncLog, error)
	HasActiveSyncForType(ctx context.Context, companyID string, syncType models.SyncType) (bool, error)
	GetLastCompletedSync(ctx context.Context, companyID string, syncType models.SyncType) (*models.SyncLog, error)
	GetSyncStats(ctx context.Context, companyID string, days int) (*models.SyncStats, error)

	// Entity operations
	SaveOrder(ctx context.Context, companyID string, order *models.Order) error
	SaveProduct(ctx context.Context, companyID string, product *models.Product) error
	SaveCustomer(ctx context.Context, companyID string, customer *models.Customer) error

	// Activity operations
	RecordActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, companyID string, limit int) ([]*models.Activity, error)
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "internal/db/migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
