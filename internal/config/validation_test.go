package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Source.Dir = "/exports"
	cfg.Destination.Host = "db-host"
	cfg.Destination.User = "importer"
	cfg.Destination.Database = "churchdb"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidate_SourceKind(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Kind = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown source kind")
	}

	cfg = validConfig()
	cfg.Source.Kind = "csv"
	cfg.Source.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for csv source without dir")
	}

	cfg = validConfig()
	cfg.Source.Kind = "scanner"
	cfg.Source.File = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for scanner source without file")
	}
}

func TestValidate_SourceTag(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Tag = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty source tag")
	}
	if !strings.Contains(err.Error(), "source.tag") {
		t.Errorf("expected source.tag in error, got %v", err)
	}
}

func TestValidate_Destination(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Destination.Host = "" }},
		{"missing user", func(c *Config) { c.Destination.User = "" }},
		{"missing database", func(c *Config) { c.Destination.Database = "" }},
		{"bad port", func(c *Config) { c.Destination.Port = 70000 }},
		{"bad tls", func(c *Config) { c.Destination.TLS = "maybe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_Processing(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.ReportingInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero reporting interval")
	}

	cfg = validConfig()
	cfg.Processing.ReportingInterval = 100
	cfg.Processing.CommitInterval = 50
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when commit interval is below reporting interval")
	}
}

func TestValidate_Import(t *testing.T) {
	cfg := validConfig()
	cfg.Import.DateFormats = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty date formats")
	}

	cfg = validConfig()
	cfg.Import.Tables = []string{"people", "  "}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank table name")
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestValidationErrors_Message(t *testing.T) {
	cfg := validConfig()
	cfg.Destination.Host = ""
	cfg.Source.Tag = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "destination.host") || !strings.Contains(msg, "source.tag") {
		t.Errorf("expected both fields in message, got %q", msg)
	}
}
