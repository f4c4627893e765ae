package cmd

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/mapper"
	"github.com/spf13/cobra"
)

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List all source tables and their mappers",
	Long: `List-tables displays every source table this binary can import, the
columns its mapper reads, and the tables it depends on.

Example:
  congregate list-tables --config congregate.yaml`,
	RunE: runListTables,
}

func init() {
	rootCmd.AddCommand(listTablesCmd)
}

func runListTables(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	runner := mapper.NewRunner(&mapper.Env{Config: cfg}, nil)

	selected := make(map[string]bool, len(cfg.Import.Tables))
	for _, t := range cfg.Import.Tables {
		selected[t] = true
	}

	names := runner.Names()
	cmd.Printf("Source tables known to this binary:\n\n")

	for i, name := range names {
		m, _ := runner.Get(name)
		schema := m.Schema()

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Required Columns: %s\n", strings.Join(schema.Required, ", "))
		if len(schema.Optional) > 0 {
			cmd.Printf("   Optional Columns: %s\n", strings.Join(schema.Optional, ", "))
		}
		if reqs := m.Requires(); len(reqs) > 0 {
			cmd.Printf("   Runs After:       %s\n", strings.Join(reqs, ", "))
		} else {
			cmd.Printf("   Runs After:       (none)\n")
		}
		if len(selected) > 0 {
			if selected[name] {
				cmd.Printf("   Selected:         yes\n")
			} else {
				cmd.Printf("   Selected:         no\n")
			}
		}

		if i < len(names)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d table(s)\n", len(names))
	return nil
}
