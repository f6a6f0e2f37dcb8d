package api

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/erpsync/bling-sync/internal/bling"
	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

// Handler holds the HTTP handlers for the sync service.
type Handler struct {
	connections bling.ConnectionService
	syncs       bling.SyncService
	logger      *logrus.Logger
}

// NewHandler creates a new API handler.
func NewHandler(connections bling.ConnectionService, syncs bling.SyncService, logger *logrus.Logger) *Handler {
	return &Handler{
		connections: connections,
		syncs:       syncs,
		logger:      logger,
	}
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncRequest is the body for triggering a synchronization run.
type SyncRequest struct {
	SyncType string     `json:"sync_type" binding:"required"`
	Since    *time.Time `json:"since,omitempty"`
	PageSize int        `json:"page_size,omitempty"`
}

// WebhookRequest is the body for registering a webhook with Bling.
type WebhookRequest struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events" binding:"required"`
}

func (h *Handler) userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func (h *Handler) respondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case apperrors.IsAccessDenied(err):
		status = http.StatusForbidden
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsSyncInProgress(err):
		status = http.StatusConflict
	case apperrors.IsConfiguration(err), apperrors.IsAuthExchange(err):
		status = http.StatusBadRequest
	default:
		h.logger.WithError(err).Error("Request failed")
		message = "internal server error"
	}

	c.JSON(status, ErrorResponse{Error: message})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>Bling Authorization</title></head>
<body>
<p>{{.Text}}</p>
<script>
  var payload = {type: 'bling_auth', success: {{.Success}}, companyId: {{.CompanyID}}, message: {{.Message}}};
  if (window.opener) {
    window.opener.postMessage(payload, '*');
  }
  window.close();
</script>
</body>
</html>`))

type callbackView struct {
	Success   bool
	CompanyID string
	Message   string
	Text      string
}

// OAuthCallback godoc
// @Summary Bling OAuth callback
// @Description Completes the OAuth authorization flow started from the Bling consent screen. Renders a page that notifies the opener window and closes itself.
// @Tags oauth
// @Produce html
// @Param code query string true "Authorization code issued by Bling"
// @Param state query string true "Company ID carried through the flow"
// @Success 200 {string} string "authorization completed"
// @Failure 400 {string} string "authorization failed"
// @Router /oauth/callback [get]
func (h *Handler) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	companyID := c.Query("state")

	view := callbackView{CompanyID: companyID}
	status := http.StatusOK

	switch {
	case code == "" || companyID == "":
		status = http.StatusBadRequest
		view.Message = "authorization request was incomplete"
	default:
		err := h.connections.CompleteAuthorization(c.Request.Context(), h.userID(c), companyID, code)
		if err != nil {
			h.logger.WithError(err).WithField("company_id", companyID).Error("OAuth authorization failed")
			status = http.StatusBadRequest
			view.Message = "could not complete Bling authorization"
		} else {
			view.Success = true
			view.Message = "Bling account connected"
		}
	}

	if view.Success {
		view.Text = "Authorization completed. You can close this window."
	} else {
		view.Text = "Authorization failed. You can close this window and try again."
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := callbackPage.Execute(c.Writer, view); err != nil {
		h.logger.WithError(err).Error("Failed to render callback page")
	}
}

// TriggerSync godoc
// @Summary Trigger a synchronization run
// @Description Starts an asynchronous synchronization run for the company. Returns the created run immediately.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body SyncRequest true "Sync parameters"
// @Success 202 {object} models.SyncLog
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "A run of this type is already in progress"
// @Router /api/v1/companies/{id}/sync [post]
func (h *Handler) TriggerSync(c *gin.Context) {
	companyID := c.Param("id")

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	syncType := models.SyncType(req.SyncType)
	if !syncType.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid sync type: %s", req.SyncType)})
		return
	}

	opts := &models.SyncOptions{Since: req.Since, PageSize: req.PageSize}
	log, err := h.syncs.StartSync(c.Request.Context(), h.userID(c), companyID, syncType, opts)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, log)
}

// ListSyncLogs godoc
// @Summary List synchronization runs
// @Tags sync
// @Produce json
// @Param id path string true "Company ID"
// @Param status query string false "Filter by run status"
// @Param limit query int false "Maximum number of runs to return" default(50)
// @Success 200 {array} models.SyncLog
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/companies/{id}/sync-logs [get]
func (h *Handler) ListSyncLogs(c *gin.Context) {
	companyID := c.Param("id")

	filter := &models.SyncLogFilter{Status: models.SyncStatus(c.Query("status"))}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = n
	}

	logs, err := h.syncs.ListSyncLogs(c.Request.Context(), h.userID(c), companyID, filter)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GetSyncLog godoc
// @Summary Get a synchronization run
// @Tags sync
// @Produce json
// @Param id path string true "Company ID"
// @Param logID path string true "Sync run ID"
// @Success 200 {object} models.SyncLog
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/companies/{id}/sync-logs/{logID} [get]
func (h *Handler) GetSyncLog(c *gin.Context) {
	log, err := h.syncs.GetSyncLog(c.Request.Context(), h.userID(c), c.Param("id"), c.Param("logID"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, log)
}

// CancelSyncLog godoc
// @Summary Cancel a synchronization run
// @Description Requests cooperative cancellation of an in-progress run. Cancelling a finished run has no effect.
// @Tags sync
// @Produce json
// @Param id path string true "Company ID"
// @Param logID path string true "Sync run ID"
// @Success 200 {object} models.SyncLog
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/companies/{id}/sync-logs/{logID}/cancel [post]
func (h *Handler) CancelSyncLog(c *gin.Context) {
	if err := h.syncs.CancelSync(c.Request.Context(), h.userID(c), c.Param("id"), c.Param("logID")); err != nil {
		h.respondWithError(c, err)
		return
	}

	log, err := h.syncs.GetSyncLog(c.Request.Context(), h.userID(c), c.Param("id"), c.Param("logID"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, log)
}

// GetSyncStats godoc
// @Summary Get synchronization statistics
// @Tags sync
// @Produce json
// @Param id path string true "Company ID"
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} models.SyncStats
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/companies/{id}/sync-stats [get]
func (h *Handler) GetSyncStats(c *gin.Context) {
	days := 0
	if d := c.Query("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid days"})
			return
		}
		days = n
	}

	stats, err := h.syncs.GetSyncStats(c.Request.Context(), h.userID(c), c.Param("id"), days)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetConnection godoc
// @Summary Get the company's Bling connection
// @Description Returns connection status. Credentials and tokens are never included in the response.
// @Tags connection
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} models.BlingConnection
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/companies/{id}/connection [get]
func (h *Handler) GetConnection(c *gin.Context) {
	conn, err := h.connections.GetConnection(c.Request.Context(), h.userID(c), c.Param("id"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	if conn == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no Bling connection for this company"})
		return
	}

	c.JSON(http.StatusOK, conn)
}

// Disconnect godoc
// @Summary Disconnect the company from Bling
// @Tags connection
// @Produce json
// @Param id path string true "Company ID"
// @Success 204 "disconnected"
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/companies/{id}/connection [delete]
func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.connections.Disconnect(c.Request.Context(), h.userID(c), c.Param("id")); err != nil {
		h.respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterWebhook godoc
// @Summary Register a webhook with Bling
// @Tags connection
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body WebhookRequest true "Webhook parameters"
// @Success 201 {object} WebhookRequest
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/companies/{id}/webhook [post]
func (h *Handler) RegisterWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if err := h.connections.RegisterWebhook(c.Request.Context(), h.userID(c), c.Param("id"), req.URL, req.Events); err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// ListActivities godoc
// @Summary List integration activities
// @Tags connection
// @Produce json
// @Param id path string true "Company ID"
// @Param limit query int false "Maximum number of activities to return" default(50)
// @Success 200 {array} models.Activity
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/companies/{id}/activities [get]
func (h *Handler) ListActivities(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	activities, err := h.connections.ListActivities(c.Request.Context(), h.userID(c), c.Param("id"), limit)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, activities)
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
