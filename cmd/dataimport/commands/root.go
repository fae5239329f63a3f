package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/config"
	"github.com/JonMunkholm/dataimport/internal/logging"
	"github.com/JonMunkholm/dataimport/internal/metrics"
	"github.com/JonMunkholm/dataimport/internal/schema"
	"github.com/JonMunkholm/dataimport/internal/store"
)

// Persistent flags. Empty values leave the environment configuration alone.
var (
	logLevel       string
	logFormat      string
	definitionsDir string
	delimiter      string
	sheet          string
	noDatabase     bool
)

// env is the runtime shared by every command, built in PersistentPreRunE.
var env struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	service *application.Service
}

var rootCmd = &cobra.Command{
	Use:   "dataimport",
	Short: "dataimport validates and imports tabular files against declared definitions",
	Long: `dataimport reads CSV, XLS and XLSX files, checks every row against a named
importer definition and reports the errors per line and field. Valid rows can be
saved to PostgreSQL when DATABASE_URL is set.

Definitions are built in or loaded from YAML files in IMPORT_DEFINITIONS_DIR.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env.pool != nil {
			env.pool.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, critical (default: LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default: LOG_FORMAT or text)")
	rootCmd.PersistentFlags().StringVar(&definitionsDir, "definitions", "", "Directory with extra YAML definitions (default: IMPORT_DEFINITIONS_DIR)")
	rootCmd.PersistentFlags().StringVar(&delimiter, "delimiter", "", "CSV field separator (default: IMPORT_DELIMITER or ;)")
	rootCmd.PersistentFlags().StringVar(&sheet, "sheet", "", "Spreadsheet sheet name (default: first sheet)")
	rootCmd.PersistentFlags().BoolVar(&noDatabase, "no-db", false, "Ignore DATABASE_URL and run without persistence")
}

// AddCommand allows adding subcommands from other files.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

func setup(cmd *cobra.Command, args []string) error {
	// Overload lets a local .env win over the shell environment.
	envLoaded := godotenv.Overload() == nil

	applyFlags()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	env.cfg = cfg

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	if !envLoaded {
		slog.Debug("no .env file found, using environment variables")
	}

	if cfg.Import.DefinitionsDir != "" {
		n, err := schema.RegisterDir(cfg.Import.DefinitionsDir)
		if err != nil {
			return err
		}
		slog.Debug("definitions loaded", "dir", cfg.Import.DefinitionsDir, "count", n)
	}

	var db store.DBTX
	if cfg.Database.Enabled() && !noDatabase {
		pool, err := connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		env.pool = pool
		db = pool

		if cfg.Database.PersistLogs {
			slog.SetDefault(slog.New(logging.Tee{
				logger.Handler(),
				logging.NewDBHandler(store.NewLogStore(pool), cfg.DBLevel()),
			}))
		}
	}

	env.metrics = metrics.New()
	env.service = application.NewService(application.Options{
		Reader:  cfg.ReaderOptions(),
		DB:      db,
		Metrics: env.metrics,
		Logger:  slog.Default(),
		Timeout: cfg.Import.Timeout,
	})
	return nil
}

// applyFlags exports explicitly set flags so config.Load sees them.
func applyFlags() {
	set := func(key, value string) {
		if value != "" {
			os.Setenv(key, value)
		}
	}
	set("LOG_LEVEL", logLevel)
	set("LOG_FORMAT", logFormat)
	set("IMPORT_DEFINITIONS_DIR", definitionsDir)
	set("IMPORT_DELIMITER", delimiter)
	set("IMPORT_SHEET", sheet)
}

// connect opens the pool, checks it and applies the schema.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Debug("connected to database", "max_conns", cfg.MaxConns)
	return pool, nil
}
