package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	// Operation dates are taken in the unit's local time.
	Timezone *time.Location

	JSONDir       string
	RenamePath    string
	BlacklistPath string
	BackupDir     string

	DiscordToken    string
	BackupChannelID string

	ExtractorAPIKey string
	ExtractorModel  string
	ExtractorURL    string

	// AdminToken guards every procedure that changes stored data or files.
	// Empty disables those procedures.
	AdminToken     string
	AllowedOrigins []string
}

func (c *Config) AdminEnabled() bool {
	return c.AdminToken != ""
}

func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != ""
}

func (c *Config) ExtractorEnabled() bool {
	return c.ExtractorAPIKey != ""
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	tzName := getEnv("UNIT_TIMEZONE", "America/New_York")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid UNIT_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "unit_stats.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Timezone:        tz,
		JSONDir:         getEnv("JSON_DIR", "json"),
		RenamePath:      getEnv("RENAME_PATH", "rename.json"),
		BlacklistPath:   getEnv("BLACKLIST_PATH", "blacklist.json"),
		BackupDir:       getEnv("BACKUP_DIR", "backups"),
		DiscordToken:    getEnv("DISCORD_TOKEN", ""),
		BackupChannelID: getEnv("BACKUP_CHANNEL_ID", ""),
		ExtractorAPIKey: getEnv("EXTRACTOR_API_KEY", ""),
		ExtractorModel:  getEnv("EXTRACTOR_MODEL", "claude-opus-4-5-20251101"),
		ExtractorURL:    getEnv("EXTRACTOR_URL", "https://api.anthropic.com/v1/messages"),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if !cfg.DiscordEnabled() {
		logger.Warn().Msg("DISCORD_TOKEN not set, thread corrections and screenshot import are disabled")
	}
	if !cfg.ExtractorEnabled() {
		logger.Warn().Msg("EXTRACTOR_API_KEY not set, screenshot extraction is disabled")
	}
	if !cfg.AdminEnabled() {
		logger.Warn().Msg("ADMIN_TOKEN not set, ingestion and maintenance procedures are disabled")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("timezone", tz.String()).
		Str("json_dir", cfg.JSONDir).
		Str("backup_dir", cfg.BackupDir).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("configuration loaded")

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
