// Package config provides configuration structures and loading for Congregate.
package config

// Config represents the complete application configuration.
type Config struct {
	Source      SourceConfig     `yaml:"source" mapstructure:"source"`
	Destination DatabaseConfig   `yaml:"destination" mapstructure:"destination"`
	Processing  ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Import      ImportConfig     `yaml:"import" mapstructure:"import"`
	Logging     LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig describes where legacy rows come from.
type SourceConfig struct {
	Kind string `yaml:"kind" mapstructure:"kind"` // csv or scanner
	Dir  string `yaml:"dir" mapstructure:"dir"`   // csv: directory with one file per table
	File string `yaml:"file" mapstructure:"file"` // scanner: path to the binary database file
	Tag  string `yaml:"tag" mapstructure:"tag"`   // source-system tag persisted on every entity
}

// DatabaseConfig represents the destination MySQL connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ProcessingConfig represents the buffering cadence of the commit engine.
type ProcessingConfig struct {
	// ReportingInterval is the number of produced entities between
	// progress pings (N).
	ReportingInterval int `yaml:"reporting_interval" mapstructure:"reporting_interval"`
	// CommitInterval is the number of produced entities between
	// checkpoints (M, conventionally N*10).
	CommitInterval int `yaml:"commit_interval" mapstructure:"commit_interval"`
}

// ImportConfig represents mapper selection and parsing knobs.
type ImportConfig struct {
	Tables             []string `yaml:"tables" mapstructure:"tables"`
	DefaultCountryCode string   `yaml:"default_country_code" mapstructure:"default_country_code"`
	DateFormats        []string `yaml:"date_formats" mapstructure:"date_formats"`
	DisableAuditing    bool     `yaml:"disable_auditing" mapstructure:"disable_auditing"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultDateFormats is the ordered candidate list tried when parsing
// legacy date strings. The first layout that parses wins.
var DefaultDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"1/02/2006",
	"1/2/2006",
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind: "csv",
			Tag:  "legacy",
		},
		Destination: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: ProcessingConfig{
			ReportingInterval: 100,
			CommitInterval:    1000,
		},
		Import: ImportConfig{
			DefaultCountryCode: "1",
			DateFormats:        DefaultDateFormats,
			DisableAuditing:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, reportingInterval, commitInterval int, disableAuditing bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if reportingInterval > 0 {
		c.Processing.ReportingInterval = reportingInterval
	}
	if commitInterval > 0 {
		c.Processing.CommitInterval = commitInterval
	}
	if disableAuditing {
		c.Import.DisableAuditing = true
	}
}
