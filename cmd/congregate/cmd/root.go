package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile           string
	logLevel          string
	logFormat         string
	reportingInterval int
	commitInterval    int
	disableAuditing   bool
)

var rootCmd = &cobra.Command{
	Use:   "congregate",
	Short: "Legacy church-management data migrator",
	Long: `A batch ETL tool that migrates legacy church-management exports
into a MySQL destination.

Features:
  - One mapper per source table, ordered by prerequisite
  - Bounded buffering with periodic transactional checkpoints
  - Natural-key deduplication for safe re-runs
  - Advisory run lock against concurrent imports
  - Checkpoint-boundary shutdown on SIGINT/SIGTERM`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "congregate.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&reportingInterval, "reporting-interval", 0,
		"Override reporting interval (entities between progress pings)")
	rootCmd.PersistentFlags().IntVar(&commitInterval, "commit-interval", 0,
		"Override commit interval (entities between checkpoints)")

	// Destination overrides
	rootCmd.PersistentFlags().BoolVar(&disableAuditing, "disable-auditing", false,
		"Suppress destination-side audit triggers during the import")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel          string
	LogFormat         string
	ReportingInterval int
	CommitInterval    int
	DisableAuditing   bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		ReportingInterval: reportingInterval,
		CommitInterval:    commitInterval,
		DisableAuditing:   disableAuditing,
	}
}
