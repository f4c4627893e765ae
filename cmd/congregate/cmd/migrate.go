package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/database"
	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/lock"
	"github.com/dbsmedya/congregate/internal/logger"
	"github.com/dbsmedya/congregate/internal/mapper"
	"github.com/dbsmedya/congregate/internal/progress"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
	"github.com/spf13/cobra"
)

var (
	migrateTables     []string
	migrateForce      bool
	migrateNoProgress bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import legacy source tables into the destination database",
	Long: `Migrate streams each selected source table through its mapper and
writes the produced entities to the destination in bounded transactional
checkpoints.

The import follows these steps:
  1. Order the selected mappers so prerequisites run first
  2. Preload the reference index with previously imported keys
  3. Stream each table, buffering entities and committing in chunks
  4. Skip rows whose natural key was already imported (safe re-runs)

SIGINT/SIGTERM stop the run at the last committed checkpoint; re-running
the same command resumes from there.

Example:
  congregate migrate --config congregate.yaml --table people,groups`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringSliceVarP(&migrateTables, "table", "t", nil,
		"Source tables to import (default: tables from configuration, or all)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false,
		"Force execution even if the run lock cannot be acquired (use with caution)")
	migrateCmd.Flags().BoolVar(&migrateNoProgress, "no-progress", false,
		"Report progress through the structured logger instead of a console bar")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.ReportingInterval, overrides.CommitInterval,
		overrides.DisableAuditing)

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	tables := migrateTables
	if len(tables) == 0 {
		tables = cfg.Import.Tables
	}

	log.Infow("Starting import",
		"config", configFile,
		"source", cfg.Source.Kind,
		"tag", cfg.Source.Tag,
	)

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling: cancellation is observed at row
	// boundaries, so a signal stops the run at the last committed checkpoint.
	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("Received shutdown signal - stopping at last checkpoint", "signal", sig.String())
	})

	// Connect to destination
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to destination: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("destination connection failed: %w", err)
	}

	// Fail before the first row if any destination table is missing.
	if err := dbManager.VerifyTables(ctx, store.DestinationTables); err != nil {
		return fmt.Errorf("destination schema check failed: %w", err)
	}

	// Acquire advisory lock to prevent concurrent imports into the same
	// destination
	if !migrateForce {
		runLock := lock.NewRunLock(dbManager.Destination, cfg.Destination.Database)
		if err := runLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("an import into %q is already running on another instance (use --force to override)",
					cfg.Destination.Database)
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer runLock.ReleaseLock(context.Background())
		log.Infow("Acquired advisory run lock", "database", cfg.Destination.Database)
	} else {
		log.Warnw("Skipping advisory lock acquisition (--force flag used)")
	}

	opener, err := newOpener(cfg)
	if err != nil {
		return err
	}

	st := store.NewSQLStore(dbManager, cfg.Import.DisableAuditing)

	var reporter progress.Reporter
	if migrateNoProgress {
		reporter = progress.NewLogReporter(log)
	} else {
		console := progress.NewConsoleReporter(os.Stdout)
		defer console.Done()
		reporter = console
	}

	env := &mapper.Env{
		Store:    st,
		Index:    refindex.New(st, cfg.Source.Tag),
		Log:      log,
		Reporter: reporter,
		Config:   cfg,
	}
	runner := mapper.NewRunner(env, opener)

	started := time.Now()
	if err := runner.Run(ctx, tables); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warnw("Import cancelled - committed checkpoints are kept, re-run to resume")
			return nil
		}
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\n=== Import Complete ===\n")
	fmt.Printf("Source: %s (%s)\n", cfg.Source.Kind, cfg.Source.Tag)
	fmt.Printf("Destination: %s\n", cfg.Destination.Database)
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Millisecond))

	return nil
}

// newOpener builds the row source opener for the configured source kind.
func newOpener(cfg *config.Config) (legacy.Opener, error) {
	switch cfg.Source.Kind {
	case "csv":
		return legacy.NewCSVOpener(cfg.Source.Dir, cfg.Import.DateFormats), nil
	default:
		return nil, fmt.Errorf("source kind %q is not built into this binary", cfg.Source.Kind)
	}
}
