package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/go-workshop-progress/internal/app"
	"github.com/ad/go-workshop-progress/internal/auth"
	"github.com/ad/go-workshop-progress/internal/config"
	"github.com/ad/go-workshop-progress/internal/httpapi"
	"github.com/ad/go-workshop-progress/internal/logging"
	"github.com/ad/go-workshop-progress/internal/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireServer(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	if cfg.UsersSeedPath != "" {
		created, err := auth.SeedFromFile(ctx, st, cfg.UsersSeedPath)
		if err != nil {
			logger.Fatal("failed to seed users", zap.Error(err))
		}
		logger.Info("users seeded", zap.Int("created", created))
	}

	notifier, err := app.NewNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up notifications", zap.Error(err))
	}

	syncService := services.NewProgressSyncService(st, notifier, logger)
	handler := httpapi.NewRouter(&httpapi.Handler{
		Auth:   auth.NewService(st, cfg.JWTSecret, cfg.TokenTTL),
		Users:  services.NewUserManager(st, syncService, logger),
		Sync:   syncService,
		Stats:  services.NewStatisticsService(st),
		Logger: logger,
	})
	server := httpapi.NewServer(cfg.HTTPAddr, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
