package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/mapper"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planTables []string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the mapper execution order",
	Long: `Plan resolves the selected source tables to their mappers and displays
the order they would run in, prerequisites first.

Nothing is read or written: plan only needs the configuration file.

Example:
  congregate plan --config congregate.yaml --table contributions`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringSliceVarP(&planTables, "table", "t", nil,
		"Source tables to plan for (default: tables from configuration, or all)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tables := planTables
	if len(tables) == 0 {
		tables = cfg.Import.Tables
	}

	// Ordering needs no store or source, only the registered mappers.
	runner := mapper.NewRunner(&mapper.Env{Config: cfg}, nil)

	ordered, err := runner.Order(tables)
	if err != nil {
		return fmt.Errorf("failed to order mappers: %w", err)
	}

	printHeader("Execution Plan")

	fmt.Fprintln(outputWriter)
	printSection("Run Order (prerequisites first)")
	for i, m := range ordered {
		name := color.Green.Sprint(m.Name())
		if reqs := m.Requires(); len(reqs) > 0 {
			fmt.Fprintf(outputWriter, "  [%d] %s  (after %s)\n",
				i+1, name, strings.Join(reqs, ", "))
		} else {
			fmt.Fprintf(outputWriter, "  [%d] %s\n", i+1, name)
		}
	}

	fmt.Fprintln(outputWriter)
	printSection("Configuration")
	fmt.Fprintf(outputWriter, "  Source:             %s", cfg.Source.Kind)
	if cfg.Source.Dir != "" {
		fmt.Fprintf(outputWriter, " (%s)", cfg.Source.Dir)
	}
	fmt.Fprintln(outputWriter)
	fmt.Fprintf(outputWriter, "  Source Tag:         %s\n", cfg.Source.Tag)
	fmt.Fprintf(outputWriter, "  Destination:        %s\n", cfg.Destination.Database)
	fmt.Fprintf(outputWriter, "  Reporting Interval: %d\n", cfg.Processing.ReportingInterval)
	fmt.Fprintf(outputWriter, "  Commit Interval:    %d\n", cfg.Processing.CommitInterval)

	return nil
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}
