package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Bling Sync API
// @version 1.0
// @description Multi-tenant synchronization service for the Bling ERP
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey UserID
// @in header
// @name X-User-ID
// @description Identity of the acting user, injected by the platform gateway.

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", h.HealthCheck)

	// OAuth callback lives outside the versioned API, the ERP redirects here
	r.GET("/oauth/callback", h.OAuthCallback)

	// API v1 group
	v1 := r.Group("/api/v1")
	{
		companies := v1.Group("/companies/:id")
		{
			companies.POST("/sync", h.TriggerSync)
			companies.GET("/sync-logs", h.ListSyncLogs)
			companies.GET("/sync-logs/:logID", h.GetSyncLog)
			companies.POST("/sync-logs/:logID/cancel", h.CancelSyncLog)
			companies.GET("/sync-stats", h.GetSyncStats)

			companies.GET("/connection", h.GetConnection)
			companies.DELETE("/connection", h.Disconnect)
			companies.POST("/webhook", h.RegisterWebhook)
			companies.GET("/activities", h.ListActivities)
		}
	}

	return r
}
