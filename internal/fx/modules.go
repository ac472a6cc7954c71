package fx

import (
	"database/sql"
	"unit-tracker/internal/api"
	"unit-tracker/internal/config"
	"unit-tracker/internal/database"
	"unit-tracker/internal/db"
	"unit-tracker/internal/logger"
	"unit-tracker/internal/repository"
	"unit-tracker/internal/server"
	"unit-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideConfig() (*config.Config, error) {
	return config.Load(logger.New())
}

// ProvideLogger builds the root logger at the configured level. config.Load
// logs through a bootstrap logger.
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logger.FromString(cfg.LogLevel)
}

// Core is everything but the HTTP server, shared with the admin CLI.
var Core = fx.Options(
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLogger),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewRecordRepository),
	// api clients
	fx.Provide(api.NewDiscordClient),
	fx.Provide(api.NewVisionExtractor),
	// svc
	fx.Provide(service.NewScoreService),
	fx.Provide(service.NewIdentityService),
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewCorrectionService),
	fx.Provide(service.NewScreenshotService),
)

var Module = fx.Options(
	Core,
	// server
	fx.Provide(server.NewTrackerServer),
)
