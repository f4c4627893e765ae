// Package database provides MySQL connection management for Congregate.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/sqlutil"
)

// Manager handles the destination database connection.
type Manager struct {
	Destination *sql.DB
	config      *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes the connection to the destination database.
func (m *Manager) Connect(ctx context.Context) error {
	var err error

	m.Destination, err = m.connectWithRetry(ctx, &m.config.Destination)
	if err != nil {
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}

	return nil
}

// Recycle closes and reopens the destination connection. Import runs can
// process hundreds of thousands of rows; recycling at checkpoint boundaries
// keeps per-session state on the server from accumulating.
func (m *Manager) Recycle(ctx context.Context) error {
	if m.Destination != nil {
		if err := m.Destination.Close(); err != nil {
			return fmt.Errorf("failed to close destination before recycle: %w", err)
		}
		m.Destination = nil
	}
	return m.Connect(ctx)
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a database connection.
func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	// Add TLS configuration
	params := "?parseTime=true&multiStatements=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// VerifyTables checks that every destination table the import writes to
// exists and is readable. Run before any row is imported so a missing or
// misspelled table fails the run up front instead of at the first checkpoint.
func (m *Manager) VerifyTables(ctx context.Context, tables []string) error {
	for _, table := range tables {
		quoted, err := sqlutil.QuoteIdentifierSafe(table)
		if err != nil {
			return fmt.Errorf("invalid destination table name: %w", err)
		}

		query := fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", quoted)
		rows, err := m.Destination.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("destination table %q is not accessible: %w", table, err)
		}
		rows.Close()
	}
	return nil
}

// Close closes the destination connection gracefully.
func (m *Manager) Close() error {
	if m.Destination != nil {
		if err := m.Destination.Close(); err != nil {
			return fmt.Errorf("destination close: %w", err)
		}
		m.Destination = nil
	}
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Destination != nil {
		if err := m.Destination.PingContext(ctx); err != nil {
			return fmt.Errorf("destination ping failed: %w", err)
		}
	}
	return nil
}
