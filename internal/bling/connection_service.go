package bling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/erpsync/bling-sync/internal/config"
	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

// ConnectionServiceImpl implements ConnectionService and ClientProvider on top
// of the connection store. One client is cached per tenant so token refreshes
// for a tenant are serialized on that client's mutex.
type ConnectionServiceImpl struct {
	store    ConnectionStore
	activity ActivityStore
	auth     Authorizer
	cfg      *config.BlingConfig
	logger   *logrus.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewConnectionService creates a new connection service
func NewConnectionService(store ConnectionStore, activity ActivityStore, auth Authorizer, cfg *config.BlingConfig, logger *logrus.Logger) *ConnectionServiceImpl {
	return &ConnectionServiceImpl{
		store:    store,
		activity: activity,
		auth:     auth,
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[string]*Client),
	}
}

func (s *ConnectionServiceImpl) authorize(ctx context.Context, userID, companyID string) error {
	allowed, err := s.auth.CanAccessCompany(ctx, userID, companyID)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		return &apperrors.AccessDeniedError{UserID: userID, CompanyID: companyID}
	}
	return nil
}

// CompleteAuthorization finishes the OAuth handshake: authorization check,
// credential load, code exchange, atomic token persistence, audit record.
// Tokens are only swapped on full success; a rejected code leaves the stored
// state untouched.
func (s *ConnectionServiceImpl) CompleteAuthorization(ctx context.Context, userID, companyID, code string) error {
	logger := s.logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"action":     "complete_authorization",
	})

	if err := s.authorize(ctx, userID, companyID); err != nil {
		logger.WithError(err).Warn("Authorization check rejected OAuth completion")
		return err
	}

	conn, err := s.store.GetConnection(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil || !conn.Configured() {
		return &apperrors.ConfigurationError{CompanyID: companyID, Reason: "client credentials not configured"}
	}

	client := s.clientFor(companyID, conn.TokenState)
	if _, err := client.Authenticate(ctx, code); err != nil {
		logger.WithError(err).Error("Authorization code exchange failed")
		return err
	}

	s.recordActivity(ctx, companyID, userID, "bling.connected", map[string]any{
		"expires_at": client.Token().ExpiresAt,
	})

	logger.Info("Bling connection authorized")
	return nil
}

// GetConnection returns the tenant connection after the boundary check.
func (s *ConnectionServiceImpl) GetConnection(ctx context.Context, userID, companyID string) (*models.BlingConnection, error) {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}

	conn, err := s.store.GetConnection(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, &apperrors.NotFoundError{Resource: "bling connection", ID: companyID}
	}
	return conn, nil
}

// Disconnect deactivates the connection. Token state is kept; reactivation
// happens on the next successful OAuth completion.
func (s *ConnectionServiceImpl) Disconnect(ctx context.Context, userID, companyID string) error {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return err
	}

	if err := s.store.DeactivateConnection(ctx, companyID); err != nil {
		return fmt.Errorf("failed to deactivate connection: %w", err)
	}

	s.mu.Lock()
	delete(s.clients, companyID)
	s.mu.Unlock()

	s.recordActivity(ctx, companyID, userID, "bling.disconnected", nil)
	return nil
}

// RegisterWebhook registers the ERP callback URL for the tenant.
func (s *ConnectionServiceImpl) RegisterWebhook(ctx context.Context, userID, companyID, callbackURL string, events []string) error {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return err
	}

	client, err := s.activeClient(ctx, companyID)
	if err != nil {
		return err
	}
	if err := client.SetupWebhook(ctx, callbackURL, events); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	s.recordActivity(ctx, companyID, userID, "bling.webhook_registered", map[string]any{
		"url":    callbackURL,
		"events": events,
	})
	return nil
}

// ListActivities returns the tenant's audit trail.
func (s *ConnectionServiceImpl) ListActivities(ctx context.Context, userID, companyID string, limit int) ([]*models.Activity, error) {
	if err := s.authorize(ctx, userID, companyID); err != nil {
		return nil, err
	}
	return s.activity.ListActivities(ctx, companyID, limit)
}

// ClientFor resolves the API client for a tenant with an active, authenticated
// connection. Implements ClientProvider for the sync orchestrator.
func (s *ConnectionServiceImpl) ClientFor(ctx context.Context, companyID string) (APIClient, error) {
	client, err := s.activeClient(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ConnectionServiceImpl) activeClient(ctx context.Context, companyID string) (*Client, error) {
	conn, err := s.store.GetConnection(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil || !conn.Configured() {
		return nil, &apperrors.ConfigurationError{CompanyID: companyID, Reason: "client credentials not configured"}
	}
	if !conn.IsActive {
		return nil, &apperrors.ConfigurationError{CompanyID: companyID, Reason: "connection is not active"}
	}
	if !conn.Authenticated() {
		return nil, &apperrors.ConfigurationError{CompanyID: companyID, Reason: "connection has not completed OAuth"}
	}
	return s.clientFor(companyID, conn.TokenState), nil
}

// clientFor returns the cached per-tenant client, creating it on first use.
func (s *ConnectionServiceImpl) clientFor(companyID string, state models.TokenState) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, exists := s.clients[companyID]; exists {
		return client
	}

	client := NewClient(
		companyID,
		state,
		s.cfg.APIBaseURL,
		s.cfg.TokenURL,
		s.cfg.RequestTimeout,
		s.logger,
		WithTokenSaver(s.store.SaveConnectionTokens),
	)
	s.clients[companyID] = client
	return client
}

// recordActivity writes an audit record; failures are logged, never surfaced.
func (s *ConnectionServiceImpl) recordActivity(ctx context.Context, companyID, userID, action string, details map[string]any) {
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
