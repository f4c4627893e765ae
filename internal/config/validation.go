package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateDatabase("destination", &c.Destination)...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateImport()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors

	switch c.Source.Kind {
	case "csv":
		if c.Source.Dir == "" {
			errors = append(errors, ValidationError{
				Field:   "source.dir",
				Message: "dir is required for csv sources",
			})
		}
	case "scanner":
		if c.Source.File == "" {
			errors = append(errors, ValidationError{
				Field:   "source.file",
				Message: "file is required for scanner sources",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "source.kind",
			Message: "kind must be 'csv' or 'scanner'",
		})
	}

	if c.Source.Tag == "" {
		errors = append(errors, ValidationError{
			Field:   "source.tag",
			Message: "tag is required (persisted on every imported entity)",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.ReportingInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.reporting_interval",
			Message: "reporting_interval must be positive",
		})
	}

	if c.Processing.CommitInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.commit_interval",
			Message: "commit_interval must be positive",
		})
	}

	if c.Processing.CommitInterval > 0 && c.Processing.ReportingInterval > 0 &&
		c.Processing.CommitInterval < c.Processing.ReportingInterval {
		errors = append(errors, ValidationError{
			Field:   "processing.commit_interval",
			Message: "commit_interval must not be smaller than reporting_interval",
		})
	}

	return errors
}

func (c *Config) validateImport() ValidationErrors {
	var errors ValidationErrors

	if len(c.Import.DateFormats) == 0 {
		errors = append(errors, ValidationError{
			Field:   "import.date_formats",
			Message: "at least one date format is required",
		})
	}

	for _, table := range c.Import.Tables {
		if strings.TrimSpace(table) == "" {
			errors = append(errors, ValidationError{
				Field:   "import.tables",
				Message: "table names must not be blank",
			})
			break
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
