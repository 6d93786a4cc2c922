// Package app wires configuration into concrete backends for the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ad/go-workshop-progress/internal/db"
	"github.com/ad/go-workshop-progress/internal/config"
	"github.com/ad/go-workshop-progress/internal/db/postgres"
	"github.com/ad/go-workshop-progress/internal/services"
	"github.com/ad/go-workshop-progress/internal/store"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// OpenStore returns the PostgreSQL store when DATABASE_URL is set and the
// sqlite store at DB_PATH otherwise.
func OpenStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.UsePostgres() {
		logger.Info("using postgres backend")
		return postgres.New(cfg.DatabaseURL)
	}
	logger.Info("using sqlite backend", zap.String("path", cfg.DBPath))
	return db.Open(cfg.DBPath)
}

// NewNotifier returns a Telegram notifier for the admin chat, or nil when
// notifications are not configured.
func NewNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.CompletionNotifier, error) {
	if !cfg.NotificationsEnabled() {
		return nil, nil
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(15*time.Second, httpClient))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	for i := 0; i < 3; i++ {
		getMeCtx, getMeCancel := context.WithTimeout(ctx, 10*time.Second)
		_, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			break
		}
		logger.Warn("telegram getMe failed", zap.Int("attempt", i+1), zap.Error(err))
		if i < 2 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("telegram completion notifications enabled", zap.Int64("chat_id", cfg.AdminChatID))
	return services.NewTelegramCompletionNotifier(b, cfg.AdminChatID), nil
}
