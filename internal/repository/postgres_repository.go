package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"shiftsync/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Synchronized record operations, uniform across entity kinds
	FindRecord(ctx context.Context, kind models.EntityKind, id string) (*models.Record, error)
	UpsertRecord(ctx context.Context, kind models.EntityKind, rec models.Record) error
	RecordsChangedSince(ctx context.Context, kind models.EntityKind, since int64) ([]models.Record, error)
	AllRecords(ctx context.Context, kind models.EntityKind, includeDeleted bool) ([]models.Record, error)

	// Audit trail operations
	InsertAuditLog(ctx context.Context, entry models.AuditLog) error
}

// tableByKind is the registry mapping entity-kind wire tags to their tables.
// Adding a kind means adding a row here and in config.createTables.
var tableByKind = map[models.EntityKind]string{
	models.KindEmployees:                "employees",
	models.KindUsers:                    "users",
	models.KindDailyTimeRecords:         "daily_time_records",
	models.KindTheoreticalShiftPatterns: "theoretical_shift_patterns",
	models.KindAssignedShifts:           "assigned_shifts",
	models.KindShiftReports:             "shift_reports",
	models.KindAppSettings:              "app_settings",
}

func tableFor(kind models.EntityKind) (string, error) {
	table, ok := tableByKind[kind]
	if !ok {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
	return table, nil
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// FindRecord returns the authoritative copy of a record, or nil if the id has
// never been seen for this kind.
func (r *PostgresRepository) FindRecord(ctx context.Context, kind models.EntityKind, id string) (*models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var payload []byte
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, table)
	err = r.db.GetContext(ctx, &payload, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Record not found
		}
		return nil, err
	}

	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("corrupt payload for %s/%s: %w", kind, id, err)
	}

	return &rec, nil
}

// UpsertRecord writes a record as a single statement so each record commits
// independently of the rest of its batch.
func (r *PostgresRepository) UpsertRecord(ctx context.Context, kind models.EntityKind, rec models.Record) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, last_modified, sync_status, sync_error, is_deleted, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			last_modified = EXCLUDED.last_modified,
			sync_status = EXCLUDED.sync_status,
			sync_error = EXCLUDED.sync_error,
			is_deleted = EXCLUDED.is_deleted,
			payload = EXCLUDED.payload
	`, table)

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.LastModified, rec.SyncStatus, rec.SyncError, rec.IsDeleted, payload)

	return err
}

// RecordsChangedSince returns every record of a kind modified strictly after
// the given epoch-millisecond watermark, soft-deleted rows included.
func (r *PostgresRepository) RecordsChangedSince(ctx context.Context, kind models.EntityKind, since int64) ([]models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload FROM %s
		WHERE last_modified > $1
		ORDER BY last_modified ASC
	`, table)

	return r.selectRecords(ctx, query, since)
}

// AllRecords returns the full snapshot of a kind for bootstrap.
func (r *PostgresRepository) AllRecords(ctx context.Context, kind models.EntityKind, includeDeleted bool) ([]models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT payload FROM %s`, table)
	if !includeDeleted {
		query += ` WHERE is_deleted = FALSE`
	}
	query += ` ORDER BY last_modified ASC`

	return r.selectRecords(ctx, query)
}

func (r *PostgresRepository) selectRecords(ctx context.Context, query string, args ...interface{}) ([]models.Record, error) {
	var payloads [][]byte
	err := r.db.SelectContext(ctx, &payloads, query, args...)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(payloads))
	for _, payload := range payloads {
		var rec models.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("corrupt payload: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// InsertAuditLog stores one audit entry. Inserting an id that already exists
// is a successful no-op, which makes client re-submission idempotent.
func (r *PostgresRepository) InsertAuditLog(ctx context.Context, entry models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, timestamp, actor_username, action, details)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	var details interface{}
	if len(entry.Details) > 0 {
		details = []byte(entry.Details)
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, entry.ActorUsername, entry.Action, details)

	return err
}
