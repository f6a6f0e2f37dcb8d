package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/erpsync/bling-sync/internal/api"
	"github.com/erpsync/bling-sync/internal/bling"
	"github.com/erpsync/bling-sync/internal/config"
	"github.com/erpsync/bling-sync/internal/db"
	"github.com/erpsync/bling-sync/internal/platform"

	_ "github.com/erpsync/bling-sync/docs"
)

// @title Bling Sync API
// @version 1.0
// @description Multi-tenant synchronization service for the Bling ERP
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate minimum required config
	if cfg.DBConnectionString == "" {
		logger.Fatal("Missing required configuration (DB_CONNECTION_STRING must be set)")
	}

	// Initialize database
	dbStore, err := db.NewPostgresStore(cfg.DBConnectionString)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, func() error {
		return dbStore.Migrate()
	}); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	// Authorization policy is owned by the platform; without a platform URL
	// any identified user is accepted, which is only suitable for development
	var authorizer bling.Authorizer
	if cfg.PlatformAuthURL != "" {
		authorizer = platform.NewRemoteAuthorizer(cfg.PlatformAuthURL, logger)
	} else {
		logger.Warn("PLATFORM_AUTH_URL not set, accepting any identified user")
		authorizer = platform.AllowAllAuthorizer{}
	}

	// Initialize services
	connectionService := bling.NewConnectionService(dbStore, dbStore, authorizer, cfg.Bling, logger)
	syncService := bling.NewSyncService(connectionService, dbStore, dbStore, dbStore, authorizer, cfg.Sync, logger)
	apiHandler := api.NewHandler(connectionService, syncService, logger)

	// Setup router with middleware
	router := api.SetupRouter(apiHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := dbStore.Close(); err != nil {
		logger.Errorf("Database close failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
