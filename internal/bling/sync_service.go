package bling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/erpsync/bling-sync/internal/config"
	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

// errRunCancelled signals cooperative cancellation detected between pages.
var errRunCancelled = errors.New("sync run cancelled")

// SyncServiceImpl implements SyncService. It drives the paginated
// fetch-and-persist loop against the tenant's API client, tolerating item
// level failures and persisting counters incrementally so a run is observable
// while it is still in progress.
type SyncServiceImpl struct {
	clients  ClientProvider
	logs     SyncLogStore
	entities EntityStore
	activity ActivityStore
	auth     Authorizer
	cfg      *config.SyncConfig
	logger   *logrus.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	clients ClientProvider,
	logs SyncLogStore,
	entities EntityStore,
	activity ActivityStore,
	auth Authorizer,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		clients:  clients,
		logs:     logs,
		entities: entities,
		activity: activity,
		auth:     auth,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *SyncServiceImpl) authorize(ctx context.Context, userID, companyID string) error {
	allowed, err := s.auth.CanAccessCompany(ctx, userID, companyID)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		return &apperrors.AccessDeniedError{UserID: userID, CompanyID: companyID}
	}
	return nil
}

// StartSync creates the run record and drives it in the background. The log
// row exists before any remote call so every attempt is observable even when
// the process dies mid-run. Duplicate active runs are rejected both by the
// advisory check and by the store's unique active-run constraint.
func (s *SyncServiceImpl) StartSync(ctx context.Context, userID, companyID string, syncType models.SyncType, opts *models.SyncOptions) (*models.SyncLog, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"sync_type":  syncType,
		"action":     "start_sync",
	})

	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}
	if !syncType.Valid() {
		return nil, fmt.Errorf("unknown sync type: %s", syncType)
	}

	client, err := s.clients.ClientFor(ctx, companyID)
	if err != nil {
		logger.WithError(err).Warn("Sync rejected, no usable connection")
		return nil, err
	}

	active, err := s.logs.HasActiveSyncForType(ctx, companyID, syncType)
	if err != nil {
		return nil, fmt.Errorf("failed to check active syncs: %w", err)
	}
	if active {
		logger.Warn("Sync already in progress")
		return nil, &apperrors.SyncInProgressError{CompanyID: companyID, SyncType: string(syncType)}
	}

	if opts == nil {
		opts = &models.SyncOptions{}
	}
	if opts.Since == nil {
		last, err := s.logs.GetLastCompletedSync(ctx, companyID, syncType)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sync checkpoint: %w", err)
		}
		if last != nil && last.CompletedAt != nil {
			opts.Since = last.CompletedAt
		}
	}

	log := &models.SyncLog{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		SyncType:  syncType,
		Status:    models.SyncStatusInProgress,
		StartedAt: time.Now().UTC(),
		Options:   *opts,
	}
	if err := s.logs.CreateSyncLog(ctx, log); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, companyID, userID, "bling.sync_started", map[string]any{
		"sync_log_id": log.ID,
		"sync_type":   syncType,
	})

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()
		s.run(runCtx, client, log)
	}()

	logger.WithField("sync_log_id", log.ID).Info("Sync run started")
	return log, nil
}

// run executes the full fetch-and-persist loop and returns the final summary.
func (s *SyncServiceImpl) run(ctx context.Context, client APIClient, log *models.SyncLog) *models.SyncSummary {
	logger := s.logger.WithFields(logrus.Fields{
		"company_id":  log.CompanyID,
		"sync_log_id": log.ID,
		"sync_type":   log.SyncType,
	})
	logger.Info("Starting sync run")

	for _, entityType := range log.SyncType.EntityTypes() {
		err := s.syncEntity(ctx, client, log, entityType)
		if errors.Is(err, errRunCancelled) {
			logger.Warn("Sync run stopped on cancellation")
			return s.summary(log, false)
		}
		if err != nil {
			logger.WithError(err).Error("Sync run failed")
			s.complete(ctx, log, models.SyncStatusFailed, err.Error())
			return s.summary(log, false)
		}
	}

	s.complete(ctx, log, models.SyncStatusCompleted, "")
	logger.WithFields(logrus.Fields{
		"total_processed": log.TotalProcessed,
		"total_errors":    log.TotalErrors,
	}).Info("Sync run completed")
	return s.summary(log, true)
}

// syncEntity pulls every page of one entity type. A single item's persistence
// failure is recorded and the loop continues; a page fetch failure aborts.
func (s *SyncServiceImpl) syncEntity(ctx context.Context, client APIClient, log *models.SyncLog, entityType models.SyncType) error {
	pageSize := log.Options.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}

	page := 1
	for {
		cancelled, err := s.isCancelled(ctx, log)
		if err != nil {
			s.logger.WithError(err).WithField("sync_log_id", log.ID).Warn("Failed to poll cancellation state")
		}
		if cancelled {
			return errRunCancelled
		}

		items, pages, err := s.fetchPage(ctx, client, log.CompanyID, entityType, page, pageSize, log.Options.Since)
		if err != nil {
			return &apperrors.FetchError{Endpoint: string(entityType), Page: page, Err: err}
		}

		for _, item := range items {
			if err := item.persist(ctx); err != nil {
				persistErr := &apperrors.ItemPersistError{EntityType: string(entityType), ItemID: item.id, Err: err}
				s.logger.WithError(persistErr).WithField("sync_log_id", log.ID).Warn("Item persistence failed, continuing")
				log.RecordItem(entityType, models.SyncItemResult{ID: item.id, Status: "error", Error: err.Error()})
			} else {
				log.RecordItem(entityType, models.SyncItemResult{ID: item.id, Status: "success"})
			}
		}

		if err := s.logs.UpdateSyncLogProgress(ctx, log); err != nil {
			s.logger.WithError(err).WithField("sync_log_id", log.ID).Warn("Failed to persist run progress")
		}

		if len(items) == 0 || page >= pages {
			return nil
		}
		page++
	}
}

// pageItem defers persistence of one fetched record so the loop can account
// for each item independently.
type pageItem struct {
	id      string
	persist func(ctx context.Context) error
}

func (s *SyncServiceImpl) fetchPage(ctx context.Context, client APIClient, companyID string, entityType models.SyncType, page, pageSize int, since *time.Time) ([]pageItem, int, error) {
	filters := &ListFilters{Page: page, PageSize: pageSize, Since: since}

	switch entityType {
	case models.SyncTypeOrders:
		result, err := client.GetOrders(ctx, filters)
		if err != nil {
			return nil, 0, err
		}
		items := make([]pageItem, 0, len(result.Orders))
		for _, order := range result.Orders {
			order := order
			items = append(items, pageItem{
				id: strconv.FormatInt(order.BlingID, 10),
				persist: func(ctx context.Context) error {
					return s.entities.SaveOrder(ctx, companyID, order)
				},
			})
		}
		return items, result.Pages, nil

	case models.SyncTypeProducts:
		result, err := client.GetProducts(ctx, filters)
		if err != nil {
			return nil, 0, err
		}
		items := make([]pageItem, 0, len(result.Products))
		for _, product := range result.Products {
			product := product
			items = append(items, pageItem{
				id: strconv.FormatInt(product.BlingID, 10),
				persist: func(ctx context.Context) error {
					return s.entities.SaveProduct(ctx, companyID, product)
				},
			})
		}
		return items, result.Pages, nil

	case models.SyncTypeCustomers:
		result, err := client.GetCustomers(ctx, filters)
		if err != nil {
			return nil, 0, err
		}
		items := make([]pageItem, 0, len(result.Customers))
		for _, customer := range result.Customers {
			customer := customer
			items = append(items, pageItem{
				id: strconv.FormatInt(customer.BlingID, 10),
				persist: func(ctx context.Context) error {
					return s.entities.SaveCustomer(ctx, companyID, customer)
				},
			})
		}
		return items, result.Pages, nil
	}

	return nil, 0, fmt.Errorf("unknown entity type: %s", entityType)
}

// isCancelled polls the persisted run state. Cancellation is requested
// out-of-band via CancelSync; the loop honors it between pages.
func (s *SyncServiceImpl) isCancelled(ctx context.Context, log *models.SyncLog) (bool, error) {
	current, err := s.logs.GetSyncLog(ctx, log.CompanyID, log.ID)
	if err != nil {
		return false, err
	}
	return current != nil && current.Status == models.SyncStatusCancelled, nil
}

func (s *SyncServiceImpl) complete(ctx context.Context, log *models.SyncLog, status models.SyncStatus, errorMessage string) {
	if err := log.Complete(status, time.Now().UTC()); err != nil {
		s.logger.WithError(err).WithField("sync_log_id", log.ID).Warn("Run already finished")
		return
	}
	log.ErrorMessage = errorMessage
	if err := s.logs.CompleteSyncLog(ctx, log.CompanyID, log.ID, status, errorMessage); err != nil {
		s.logger.WithError(err).WithField("sync_log_id", log.ID).Error("Failed to persist final run state")
	}
}

func (s *SyncServiceImpl) summary(log *models.SyncLog, success bool) *models.SyncSummary {
	return &models.SyncSummary{
		Success: success,
		Synced:  log.TotalSuccess,
		Errors:  log.TotalErrors,
	}
}

// CancelSync marks a run cancelled. The store only flips runs that are still
// in progress, so cancelling a finished run is a no-op.
func (s *SyncServiceImpl) CancelSync(ctx context.Context, userID, companyID, logID string) error {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return err
	}

	log, err := s.logs.GetSyncLog(ctx, companyID, logID)
	if err != nil {
		return err
	}
	if log == nil {
		return &apperrors.NotFoundError{Resource: "sync log", ID: logID}
	}

	if err := s.logs.CompleteSyncLog(ctx, companyID, logID, models.SyncStatusCancelled, ""); err != nil {
		return fmt.Errorf("failed to cancel sync log: %w", err)
	}

	s.recordActivity(ctx, companyID, userID, "bling.sync_cancelled", map[string]any{
		"sync_log_id": logID,
	})
	return nil
}

// GetSyncLog loads one run for a tenant.
func (s *SyncServiceImpl) GetSyncLog(ctx context.Context, userID, companyID, logID string) (*models.SyncLog, error) {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}

	log, err := s.logs.GetSyncLog(ctx, companyID, logID)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, &apperrors.NotFoundError{Resource: "sync log", ID: logID}
	}
	return log, nil
}

// ListSyncLogs lists a tenant's runs, newest first.
func (s *SyncServiceImpl) ListSyncLogs(ctx context.Context, userID, companyID string, filter *models.SyncLogFilter) ([]*models.SyncLog, error) {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}
	return s.logs.ListSyncLogs(ctx, companyID, filter)
}

// GetSyncStats aggregates a tenant's runs over a trailing window of days.
func (s *SyncServiceImpl) GetSyncStats(ctx context.Context, userID, companyID string, days int) (*models.SyncStats, error) {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.cfg.StatsWindow
	}
	return s.logs.GetSyncStats(ctx, companyID, days)
}

func (s *SyncServiceImpl) recordActivity(ctx context.Context, companyID, userID, action string, details map[string]any) {
	activity := &models.Activity{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.activity.RecordActivity(ctx, activity); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"company_id": companyID,
			"activity":   action,
		}).Error("Failed to record activity")
	}
}
