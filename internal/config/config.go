// Package config loads service settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DatabaseURL   string
	DBPath        string
	HTTPAddr      string
	JWTSecret     string
	TokenTTL      time.Duration
	BotToken      string
	AdminChatID   int64
	LogLevel      string
	UsersSeedPath string
}

// UsePostgres reports whether DATABASE_URL selects the PostgreSQL backend.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// NotificationsEnabled reports whether completion notices go to Telegram.
func (c *Config) NotificationsEnabled() bool {
	return c.BotToken != ""
}

// Load reads the environment. JWT_SECRET is only enforced by RequireServer.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBPath:        envOrDefault("DB_PATH", "workshop.db"),
		HTTPAddr:      envOrDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		LogLevel:      strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		UsersSeedPath: os.Getenv("USERS_SEED_PATH"),
	}

	ttl, err := time.ParseDuration(envOrDefault("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q", os.Getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	if raw := os.Getenv("ADMIN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
		}
		cfg.AdminChatID = id
	}
	if (cfg.BotToken == "") != (cfg.AdminChatID == 0) {
		return nil, errors.New("BOT_TOKEN and ADMIN_CHAT_ID must be set together")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}
	return cfg, nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c *Config) RequireServer() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
