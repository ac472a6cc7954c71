package cli

import (
	"database/sql"
	"fmt"
	"slices"
	"unit-tracker/internal/config"
	"unit-tracker/internal/database"
	"unit-tracker/internal/db"
	"unit-tracker/internal/logger"
	"unit-tracker/internal/repository"
	"unit-tracker/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Format  string // "json" | "text"
	Verbose bool
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the unitctl admin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "unitctl",
		Short: "unitctl - unit stats administration",
		Long:  "Import scoreboards, maintain player names and inspect unit statistics from the command line.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path (overrides DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCleanDBCommand(opts))
	cmd.AddCommand(NewRecalcCommand(opts))
	cmd.AddCommand(NewFixJSONCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewDeletePlayerCommand(opts))
	cmd.AddCommand(NewDeleteOperationCommand(opts))
	cmd.AddCommand(NewInactiveCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewScoreboardCommand(opts))

	return cmd
}

// app is the set of services a command works with. The CLI builds it by
// hand: every command is one short-lived process.
type app struct {
	cfg      *config.Config
	sqlDB    *sql.DB
	scores   *service.ScoreService
	identity *service.IdentityService
	ingest   *service.IngestService
	stats    *service.StatsService
	logger   zerolog.Logger
}

func (o *RootOptions) open() (*app, error) {
	level := zerolog.WarnLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	log := logger.Console(level)

	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}

	sqlDB, err := database.Open(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRecordRepository(sqlDB, db.New(sqlDB), log)
	scores := service.NewScoreService(repo, log)
	return &app{
		cfg:      cfg,
		sqlDB:    sqlDB,
		scores:   scores,
		identity: service.NewIdentityService(repo, scores, log),
		ingest:   service.NewIngestService(repo, log),
		stats:    service.NewStatsService(repo, cfg, log),
		logger:   log,
	}, nil
}

func (a *app) Close() {
	if err := a.sqlDB.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("error closing database connection")
	}
}

// withApp opens the store for the duration of fn.
func withApp(opts *RootOptions, fn func(a *app) error) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
