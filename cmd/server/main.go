package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/pkg/config"
	"chat-assistant/backend/pkg/di"
	"chat-assistant/backend/pkg/health"
	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/pkg/middleware"
	"chat-assistant/backend/pkg/router"
	"chat-assistant/backend/pkg/secrets"
	"chat-assistant/backend/pkg/validator"
	"chat-assistant/backend/shared/observability"

	"gorm.io/gorm"
)

func main() {
	// Loads .env as a side effect
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", cfg.Server.Version, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := secrets.Init(secrets.VaultConfigFromEnv(), log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager, using environment")
	}
	cfg.JWT.Secret = secrets.GetSecretWithDefault(ctx, "jwt_secret", cfg.JWT.Secret)
	cfg.Database.Password = secrets.GetSecretWithDefault(ctx, "db_password", cfg.Database.Password)
	if cfg.IsProduction() && cfg.JWT.Secret == "default-jwt-secret-do-not-use-in-production" {
		log.Error("JWT_SECRET must be set in production")
		os.Exit(1)
	}

	if cfg.Observability.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, os.Stdout)
		if err != nil {
			log.LogError(err, "Failed to set up tracing")
		} else {
			defer shutdownTracing(context.Background())
		}
	}
	if cfg.Observability.MetricsEnabled {
		mp, err := observability.SetupMetrics(cfg.Observability.ServiceName, nil)
		if err != nil {
			log.LogError(err, "Failed to set up metrics")
		} else {
			defer mp.Shutdown(context.Background())
		}
	}

	validator.RegisterBindingValidators()

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}
	defer container.Close()

	go container.Hub.Run(ctx)
	container.Health.Start(ctx)
	go reportDBStats(ctx, db, log)

	if cfg.Server.GRPCPort != "" {
		grpcHealth := health.NewGRPCServer(container.Health)
		go func() {
			if err := grpcHealth.Serve(ctx, cfg.Server.GRPCPort); err != nil {
				log.LogError(err, "gRPC health server stopped")
			}
		}()
	}

	r := router.New(container)
	r.SetupRoutes()
	defer r.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}

// reportDBStats feeds the connection pool size into the metrics gauge
func reportDBStats(ctx context.Context, db *gorm.DB, log *logger.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.LogError(err, "Failed to get database handle for stats")
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			middleware.SetDBConnectionsOpen(sqlDB.Stats().OpenConnections)
		case <-ctx.Done():
			return
		}
	}
}
