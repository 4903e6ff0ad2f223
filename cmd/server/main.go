package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/auth"
	"github.com/SAP-F-2025/olympiad-service/internal/cache"
	"github.com/SAP-F-2025/olympiad-service/internal/config"
	"github.com/SAP-F-2025/olympiad-service/internal/handlers"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/SAP-F-2025/olympiad-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger("").Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	if err := run(cfg, logger); err != nil {
		logger.LogError(err, "Server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	questionCache := cache.NewNoopCache()
	if redisClient, err := pkg.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn("Redis unavailable, question cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		questionCache = cache.NewRedisCache(redisClient, logger.Slog())
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger.Slog())
	if err != nil {
		return err
	}
	defer publisher.Close()

	v := validator.New()
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      postgres.NewRepository(db),
		Cache:     questionCache,
		Publisher: publisher,
		Validator: v,
		Logger:    logger.Slog(),
		CacheTTL:  cfg.CacheTTL,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestID(), utils.LoggerMiddleware(logger), utils.ContextLogger(logger))

	verifier := auth.NewCasdoorVerifier(cfg.Casdoor)
	handlers.NewHandlerManager(serviceManager, v, logger, verifier).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Olympiad service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
