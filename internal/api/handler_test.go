package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

type stubConnectionService struct {
	completeAuthErr error
	completedCodes  []string
	connection      *models.BlingConnection
	connectionErr   error
	disconnectErr   error
	webhookErr      error
	activities      []*models.Activity
}

func (s *stubConnectionService) CompleteAuthorization(_ context.Context, _, _, code string) error {
	if s.completeAuthErr != nil {
		return s.completeAuthErr
	}
	s.completedCodes = append(s.completedCodes, code)
	return nil
}

func (s *stubConnectionService) GetConnection(context.Context, string, string) (*models.BlingConnection, error) {
	return s.connection, s.connectionErr
}

func (s *stubConnectionService) Disconnect(context.Context, string, string) error {
	return s.disconnectErr
}

func (s *stubConnectionService) RegisterWebhook(context.Context, string, string, string, []string) error {
	return s.webhookErr
}

func (s *stubConnectionService) ListActivities(context.Context, string, string, int) ([]*models.Activity, error) {
	return s.activities, nil
}

type stubSyncService struct {
	startLog  *models.SyncLog
	startErr  error
	startOpts *models.SyncOptions
	cancelErr error
	log       *models.SyncLog
	logErr    error
	logs      []*models.SyncLog
	stats     *models.SyncStats
	statsDays int
}

func (s *stubSyncService) StartSync(_ context.Context, _, _ string, _ models.SyncType, opts *models.SyncOptions) (*models.SyncLog, error) {
	s.startOpts = opts
	return s.startLog, s.startErr
}

func (s *stubSyncService) CancelSync(context.Context, string, string, string) error {
	return s.cancelErr
}

func (s *stubSyncService) GetSyncLog(context.Context, string, string, string) (*models.SyncLog, error) {
	return s.log, s.logErr
}

func (s *stubSyncService) ListSyncLogs(context.Context, string, string, *models.SyncLogFilter) ([]*models.SyncLog, error) {
	return s.logs, nil
}

func (s *stubSyncService) GetSyncStats(_ context.Context, _, _ string, days int) (*models.SyncStats, error) {
	s.statsDays = days
	return s.stats, nil
}

func setupTestRouter(conns *stubConnectionService, syncs *stubSyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return SetupRouter(NewHandler(conns, syncs, logger))
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", "user-1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOAuthCallback(t *testing.T) {
	t.Run("successful authorization renders the notify page", func(t *testing.T) {
		conns := &stubConnectionService{}
		router := setupTestRouter(conns, &stubSyncService{})

		w := performRequest(router, "GET", "/oauth/callback?code=valid-code&state=company-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		body := w.Body.String()
		assert.Contains(t, body, "bling_auth")
		assert.Contains(t, body, "true")
		assert.Contains(t, body, "company-1")
		assert.Contains(t, body, "window.opener")
		assert.Equal(t, []string{"valid-code"}, conns.completedCodes)
	})

	t.Run("missing code fails without a service call", func(t *testing.T) {
		conns := &stubConnectionService{}
		router := setupTestRouter(conns, &stubSyncService{})

		w := performRequest(router, "GET", "/oauth/callback?state=company-1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "false")
		assert.Empty(t, conns.completedCodes)
	})

	t.Run("exchange failure renders a failure page without detail", func(t *testing.T) {
		conns := &stubConnectionService{
			completeAuthErr: &apperrors.AuthExchangeError{CompanyID: "company-1", Message: "provider rejected the authorization code"},
		}
		router := setupTestRouter(conns, &stubSyncService{})

		w := performRequest(router, "GET", "/oauth/callback?code=bad&state=company-1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "bling_auth")
		assert.Contains(t, body, "false")
		assert.NotContains(t, body, "provider rejected")
	})
}

func TestTriggerSync(t *testing.T) {
	t.Run("accepted run", func(t *testing.T) {
		syncs := &stubSyncService{
			startLog: &models.SyncLog{ID: "log-1", CompanyID: "company-1", SyncType: models.SyncTypeOrders, Status: models.SyncStatusInProgress},
		}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "orders"})

		assert.Equal(t, http.StatusAccepted, w.Code)

		var log models.SyncLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &log))
		assert.Equal(t, "log-1", log.ID)
		assert.Equal(t, models.SyncStatusInProgress, log.Status)
	})

	t.Run("options are forwarded", func(t *testing.T) {
		syncs := &stubSyncService{startLog: &models.SyncLog{ID: "log-1"}}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		since := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{
			"sync_type": "products",
			"since":     since.Format(time.RFC3339),
			"page_size": 50,
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.NotNil(t, syncs.startOpts)
		require.NotNil(t, syncs.startOpts.Since)
		assert.True(t, since.Equal(*syncs.startOpts.Since))
		assert.Equal(t, 50, syncs.startOpts.PageSize)
	})

	t.Run("invalid sync type", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "invoices"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate active run maps to conflict", func(t *testing.T) {
		syncs := &stubSyncService{
			startErr: &apperrors.SyncInProgressError{CompanyID: "company-1", SyncType: "orders"},
		}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "orders"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unconfigured connection maps to bad request", func(t *testing.T) {
		syncs := &stubSyncService{
			startErr: &apperrors.ConfigurationError{CompanyID: "company-1", Reason: "client credentials not configured"},
		}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "orders"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("access denied maps to forbidden", func(t *testing.T) {
		syncs := &stubSyncService{
			startErr: &apperrors.AccessDeniedError{UserID: "user-1", CompanyID: "company-1"},
		}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "orders"})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unexpected errors are not leaked", func(t *testing.T) {
		syncs := &stubSyncService{startErr: fmt.Errorf("pq: connection refused")}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync", map[string]any{"sync_type": "orders"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestSyncLogEndpoints(t *testing.T) {
	t.Run("get unknown run", func(t *testing.T) {
		syncs := &stubSyncService{logErr: &apperrors.NotFoundError{Resource: "sync log", ID: "missing"}}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "GET", "/api/v1/companies/company-1/sync-logs/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list runs", func(t *testing.T) {
		syncs := &stubSyncService{logs: []*models.SyncLog{{ID: "log-1"}, {ID: "log-2"}}}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "GET", "/api/v1/companies/company-1/sync-logs?status=completed&limit=10", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var logs []*models.SyncLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
		assert.Len(t, logs, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "GET", "/api/v1/companies/company-1/sync-logs?limit=abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cancel returns the final run state", func(t *testing.T) {
		completedAt := time.Now().UTC()
		syncs := &stubSyncService{
			log: &models.SyncLog{ID: "log-1", Status: models.SyncStatusCancelled, CompletedAt: &completedAt},
		}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "POST", "/api/v1/companies/company-1/sync-logs/log-1/cancel", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var log models.SyncLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &log))
		assert.Equal(t, models.SyncStatusCancelled, log.Status)
	})

	t.Run("stats pass the window through", func(t *testing.T) {
		syncs := &stubSyncService{stats: &models.SyncStats{WindowDays: 7}}
		router := setupTestRouter(&stubConnectionService{}, syncs)

		w := performRequest(router, "GET", "/api/v1/companies/company-1/sync-stats?days=7", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 7, syncs.statsDays)
	})
}

func TestConnectionEndpoints(t *testing.T) {
	t.Run("connection response redacts credentials", func(t *testing.T) {
		conns := &stubConnectionService{
			connection: &models.BlingConnection{
				CompanyID: "company-1",
				TokenState: models.TokenState{
					ClientID:     "client-id",
					ClientSecret: "super-secret",
					AccessToken:  "access-token",
					RefreshToken: "refresh-token",
					ExpiresAt:    time.Now().Add(time.Hour),
				},
				IsActive: true,
			},
		}
		router := setupTestRouter(conns, &stubSyncService{})

		w := performRequest(router, "GET", "/api/v1/companies/company-1/connection", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "client-id")
		assert.NotContains(t, body, "super-secret")
		assert.NotContains(t, body, "access-token")
		assert.NotContains(t, body, "refresh-token")
	})

	t.Run("missing connection", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "GET", "/api/v1/companies/company-1/connection", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disconnect", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "DELETE", "/api/v1/companies/company-1/connection", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("register webhook", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "POST", "/api/v1/companies/company-1/webhook", map[string]any{
			"url":    "https://example.com/hooks",
			"events": []string{"order.created"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("webhook requires a url", func(t *testing.T) {
		router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

		w := performRequest(router, "POST", "/api/v1/companies/company-1/webhook", map[string]any{
			"events": []string{"order.created"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list activities", func(t *testing.T) {
		conns := &stubConnectionService{
			activities: []*models.Activity{{ID: "a1", Action: "bling.connected"}},
		}
		router := setupTestRouter(conns, &stubSyncService{})

		w := performRequest(router, "GET", "/api/v1/companies/company-1/activities", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "bling.connected")
	})
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(&stubConnectionService{}, &stubSyncService{})

	w := performRequest(router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
