package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTablesCommandStructure(t *testing.T) {
	assert.NotNil(t, listTablesCmd)
	assert.Equal(t, "list-tables", listTablesCmd.Use)
	assert.NotEmpty(t, listTablesCmd.Short)
	assert.NotEmpty(t, listTablesCmd.Long)
	assert.NotNil(t, listTablesCmd.RunE)
}

func TestRunListTables(t *testing.T) {
	// Save original value and restore after test
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	configPath := filepath.Join(t.TempDir(), "congregate.yaml")
	content := `
source:
  kind: csv
  dir: /exports/legacy
  tag: acs

destination:
  host: db-host
  user: importer
  password: secret
  database: churchdb

import:
  tables: [people, contributions]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	cfgFile = configPath

	var buf bytes.Buffer
	listTablesCmd.SetOut(&buf)
	listTablesCmd.SetErr(&buf)

	err := runListTables(listTablesCmd, []string{})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Source tables known to this binary")
	assert.Contains(t, output, "people")
	assert.Contains(t, output, "contributions")
	assert.Contains(t, output, "Required Columns:")
	assert.Contains(t, output, "Runs After:")
	assert.Contains(t, output, "Selected:         yes")
	assert.Contains(t, output, "Selected:         no")
	assert.Contains(t, output, "Total: 12 table(s)")
}

func TestRunListTables_MissingConfig(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	err := runListTables(listTablesCmd, []string{})
	assert.Error(t, err)
}

func TestListTablesIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "list-tables" {
			found = true
			break
		}
	}
	assert.True(t, found, "list-tables command should be added to root command")
}
