package database

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dbsmedya/congregate/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected string
	}{
		{
			name: "basic DSN",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "churchdb",
				TLS:      "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/churchdb?parseTime=true&multiStatements=true&tls=preferred",
		},
		{
			name: "DSN without database",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				TLS:      "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/?parseTime=true&multiStatements=true&tls=preferred",
		},
		{
			name: "DSN with TLS disabled",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "churchdb",
				TLS:      "disable",
			},
			expected: "root:secret@tcp(localhost:3306)/churchdb?parseTime=true&multiStatements=true&tls=false",
		},
		{
			name: "DSN with TLS required",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "churchdb",
				TLS:      "required",
			},
			expected: "root:secret@tcp(localhost:3306)/churchdb?parseTime=true&multiStatements=true&tls=true",
		},
		{
			name: "DSN with custom port",
			cfg: &config.DatabaseConfig{
				Host:     "remote-host",
				Port:     3307,
				User:     "importer",
				Password: "p@ssw0rd!",
				Database: "churchdb",
				TLS:      "preferred",
			},
			expected: "importer:p@ssw0rd!@tcp(remote-host:3307)/churchdb?parseTime=true&multiStatements=true&tls=preferred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildDSN(tt.cfg)
			if result != tt.expected {
				t.Errorf("BuildDSN() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestBuildDSN_TLSVariants(t *testing.T) {
	tests := []struct {
		name        string
		tlsValue    string
		expectedTLS string
	}{
		{name: "TLS preferred", tlsValue: "preferred", expectedTLS: "tls=preferred"},
		{name: "TLS disable", tlsValue: "disable", expectedTLS: "tls=false"},
		{name: "TLS required", tlsValue: "required", expectedTLS: "tls=true"},
		{name: "TLS empty defaults to preferred", tlsValue: "", expectedTLS: "tls=preferred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "churchdb",
				TLS:      tt.tlsValue,
			}
			result := BuildDSN(cfg)
			if !strings.Contains(result, tt.expectedTLS) {
				t.Errorf("BuildDSN() = %q, should contain %q", result, tt.expectedTLS)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg := &config.Config{
		Destination: config.DatabaseConfig{
			Host:     "db-host",
			Port:     3306,
			User:     "importer",
			Password: "secret",
			Database: "churchdb",
		},
	}

	manager := NewManager(cfg)
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}

	if manager.config != cfg {
		t.Error("manager.config should point to provided config")
	}

	if manager.Destination != nil {
		t.Error("Destination should be nil before Connect()")
	}
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	manager := NewManager(&config.Config{
		Destination: config.DatabaseConfig{Host: "db-host"},
	})

	// Should not panic when closing unconnected manager
	if err := manager.Close(); err != nil {
		t.Errorf("Close() returned error for unconnected manager: %v", err)
	}
}

func TestManagerPingWithoutConnect(t *testing.T) {
	manager := NewManager(&config.Config{
		Destination: config.DatabaseConfig{Host: "db-host"},
	})

	if err := manager.Ping(context.Background()); err != nil {
		t.Errorf("Ping() returned error for unconnected manager: %v", err)
	}
}

func TestVerifyTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	manager := &Manager{Destination: db}

	mock.ExpectQuery("SELECT 1 FROM `people` LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("SELECT 1 FROM `groups` LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	if err := manager.VerifyTables(context.Background(), []string{"people", "groups"}); err != nil {
		t.Fatalf("VerifyTables() failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVerifyTables_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	manager := &Manager{Destination: db}

	mock.ExpectQuery("SELECT 1 FROM `nope` LIMIT 1").
		WillReturnError(&mysqlTableError{})

	err = manager.VerifyTables(context.Background(), []string{"nope"})
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should name the table, got %v", err)
	}
}

func TestVerifyTables_InvalidName(t *testing.T) {
	manager := &Manager{}

	err := manager.VerifyTables(context.Background(), []string{"people; DROP TABLE people"})
	if err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

// mysqlTableError stands in for a server-side "table doesn't exist" error.
type mysqlTableError struct{}

func (e *mysqlTableError) Error() string { return "Error 1146: Table 'churchdb.nope' doesn't exist" }
