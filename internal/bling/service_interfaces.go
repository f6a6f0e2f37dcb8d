package bling

import (
	"context"

	"github.com/erpsync/bling-sync/internal/models"
)

// ConnectionStore persists per-tenant ERP connections and their token state.
type ConnectionStore interface {
	// GetConnection loads the connection for a tenant, nil when none exists
	GetConnection(ctx context.Context, companyID string) (*models.BlingConnection, error)

	// SaveConnection creates or replaces a tenant connection
	SaveConnection(ctx context.Context, conn *models.BlingConnection) error

	// SaveConnectionTokens swaps the token state atomically, activating the connection
	SaveConnectionTokens(ctx context.Context, companyID string, state models.TokenState) error

	// DeactivateConnection soft-disables the connection, credentials are kept
	DeactivateConnection(ctx context.Context, companyID string) error
}

// SyncLogStore persists sync run records.
type SyncLogStore interface {
	// CreateSyncLog inserts a new in_progress run; rejects a duplicate active
	// run for the same (company, type) with SyncInProgressError
	CreateSyncLog(ctx context.Context, log *models.SyncLog) error

	// UpdateSyncLogProgress persists counters and result, never the status
	UpdateSyncLogProgress(ctx context.Context, log *models.SyncLog) error

	// CompleteSyncLog moves an in_progress run into a terminal state, stamping
	// completed_at; a no-op when the run already reached a terminal state
	CompleteSyncLog(ctx context.Context, companyID, id string, status models.SyncStatus, errorMessage string) error

	// GetSyncLog loads a run by id within a tenant
	GetSyncLog(ctx context.Context, companyID, id string) (*models.SyncLog, error)

	// ListSyncLogs lists a tenant's runs, newest first
	ListSyncLogs(ctx context.Context, companyID string, filter *models.SyncLogFilter) ([]*models.SyncLog, error)

	// HasActiveSyncForType reports whether an in_progress run exists
	HasActiveSyncForType(ctx context.Context, companyID string, syncType models.SyncType) (bool, error)

	// GetLastCompletedSync returns the most recent completed run, nil when none
	GetLastCompletedSync(ctx context.Context, companyID string, syncType models.SyncType) (*models.SyncLog, error)

	// GetSyncStats aggregates runs over a trailing window of days
	GetSyncStats(ctx context.Context, companyID string, days int) (*models.SyncStats, error)
}

// EntityStore persists synchronized ERP records.
type EntityStore interface {
	SaveOrder(ctx context.Context, companyID string, order *models.Order) error
	SaveProduct(ctx context.Context, companyID string, product *models.Product) error
	SaveCustomer(ctx context.Context, companyID string, customer *models.Customer) error
}

// ActivityStore records and lists audit activity.
type ActivityStore interface {
	RecordActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, companyID string, limit int) ([]*models.Activity, error)
}

// Authorizer is the boundary check that a user may act on a company. The
// actual policy lives in the hosting platform.
type Authorizer interface {
	CanAccessCompany(ctx context.Context, userID, companyID string) (bool, error)
}

// APIClient is the subset of the Bling client the orchestrator drives.
type APIClient interface {
	GetOrders(ctx context.Context, filters *ListFilters) (*OrderPage, error)
	GetProducts(ctx context.Context, filters *ListFilters) (*ProductPage, error)
	GetCustomers(ctx context.Context, filters *ListFilters) (*CustomerPage, error)
}

// ClientProvider resolves the API client for a tenant, failing with
// ConfigurationError when no active connection exists.
type ClientProvider interface {
	ClientFor(ctx context.Context, companyID string) (APIClient, error)
}

// ConnectionService manages the OAuth lifecycle of tenant connections.
type ConnectionService interface {
	// CompleteAuthorization finishes the three-legged handshake for a tenant
	CompleteAuthorization(ctx context.Context, userID, companyID, code string) error

	// GetConnection returns the tenant connection after an authorization check
	GetConnection(ctx context.Context, userID, companyID string) (*models.BlingConnection, error)

	// Disconnect deactivates the tenant connection
	Disconnect(ctx context.Context, userID, companyID string) error

	// RegisterWebhook registers the ERP callback for the tenant
	RegisterWebhook(ctx context.Context, userID, companyID, callbackURL string, events []string) error

	// ListActivities returns the tenant's audit trail
	ListActivities(ctx context.Context, userID, companyID string, limit int) ([]*models.Activity, error)
}

// SyncService drives sync runs and exposes their records.
type SyncService interface {
	// StartSync creates a run and drives it in the background
	StartSync(ctx context.Context, userID, companyID string, syncType models.SyncType, opts *models.SyncOptions) (*models.SyncLog, error)

	// CancelSync marks a run cancelled; the orchestrator stops between pages
	CancelSync(ctx context.Context, userID, companyID, logID string) error

	// GetSyncLog loads one run
	GetSyncLog(ctx context.Context, userID, companyID, logID string) (*models.SyncLog, error)

	// ListSyncLogs lists a tenant's runs
	ListSyncLogs(ctx context.Context, userID, companyID string, filter *models.SyncLogFilter) ([]*models.SyncLog, error)

	// GetSyncStats aggregates a tenant's runs over a trailing window
	GetSyncStats(ctx context.Context, userID, companyID string, days int) (*models.SyncStats, error)
}
