package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Every synchronized entity kind gets its own table with the same envelope
// columns; domain fields ride along verbatim in the payload column.
var entityTables = []string{
	"employees",
	"users",
	"daily_time_records",
	"theoretical_shift_patterns",
	"assigned_shifts",
	"shift_reports",
	"app_settings",
}

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	for _, table := range entityTables {
		_, err := db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(64) PRIMARY KEY,
				last_modified BIGINT NOT NULL,
				sync_status VARCHAR(10) NOT NULL DEFAULT 'synced',
				sync_error TEXT NOT NULL DEFAULT '',
				is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
				payload JSONB NOT NULL
			)
		`, table))
		if err != nil {
			return err
		}
	}

	// Audit trail is append-only; the primary key makes re-submission a no-op
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			timestamp BIGINT NOT NULL,
			actor_username VARCHAR(255) NOT NULL,
			action VARCHAR(255) NOT NULL,
			details JSONB
		)
	`)
	if err != nil {
		return err
	}

	// Indexes for the delta-pull queries
	var indexes []string
	for _, table := range entityTables {
		indexes = append(indexes,
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_last_modified ON %s(last_modified)", table, table))
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
