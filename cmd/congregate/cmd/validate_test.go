package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.NotEmpty(t, validateCmd.Long)
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandDocumentation(t *testing.T) {
	doc := validateCmd.Long
	assert.Contains(t, doc, "Example:")
	assert.Contains(t, doc, "congregate validate")
}

func TestValidateIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "validate" {
			found = true
			break
		}
	}
	assert.True(t, found, "validate command should be added to root command")
}

func TestRunValidate(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	// One export file carrying every required people column.
	exportDir := t.TempDir()
	peopleCSV := "individual_id,household_id,last_name,first_name\n" +
		"1,10,Smith,John\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(exportDir, "people.csv"), []byte(peopleCSV), 0644))

	configPath := filepath.Join(t.TempDir(), "congregate.yaml")
	content := `
source:
  kind: csv
  dir: ` + exportDir + `
  tag: acs

destination:
  host: db-host
  user: importer
  password: secret
  database: churchdb

import:
  tables: [people]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfgFile = configPath
	err := runValidate(validateCmd, []string{})
	assert.NoError(t, err)
}

func TestRunValidate_MissingTableFile(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	configPath := filepath.Join(t.TempDir(), "congregate.yaml")
	content := `
source:
  kind: csv
  dir: ` + t.TempDir() + `
  tag: acs

destination:
  host: db-host
  user: importer
  password: secret
  database: churchdb

import:
  tables: [people]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfgFile = configPath
	err := runValidate(validateCmd, []string{})
	assert.Error(t, err)
}

func TestRunValidate_MissingConfig(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	err := runValidate(validateCmd, []string{})
	assert.Error(t, err)
}
