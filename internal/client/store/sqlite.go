package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"shiftsync/internal/models"
)

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

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the client database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open client database: %w", err)
	}

	// The engine is single-flight, but the CLI may read counts concurrently.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create client tables: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	for _, table := range tableByKind {
		_, err := s.db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				last_modified INTEGER NOT NULL,
				sync_status TEXT NOT NULL,
				sync_error TEXT NOT NULL DEFAULT '',
				is_deleted INTEGER NOT NULL DEFAULT 0,
				payload TEXT NOT NULL
			)
		`, table))
		if err != nil {
			return err
		}
		_, err = s.db.Exec(fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_sync_status ON %s(sync_status)`, table, table))
		if err != nil {
			return err
		}
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS local_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_outbox (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			actor_username TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT
		)
	`)
	return err
}

// PendingOrError returns the records that must go out on the next round.
func (s *SQLiteStore) PendingOrError(ctx context.Context, kind models.EntityKind) ([]models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT payload FROM %s WHERE sync_status IN (?, ?) ORDER BY last_modified ASC`, table)
	return s.selectRecords(ctx, query, string(models.StatusPending), string(models.StatusError))
}

// Upsert writes a record verbatim as one atomic statement.
func (s *SQLiteStore) Upsert(ctx context.Context, kind models.EntityKind, rec models.Record) error {
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_modified = excluded.last_modified,
			sync_status = excluded.sync_status,
			sync_error = excluded.sync_error,
			is_deleted = excluded.is_deleted,
			payload = excluded.payload
	`, table)

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.LastModified, string(rec.SyncStatus), rec.SyncError, boolToInt(rec.IsDeleted), string(payload))
	return err
}

// Get returns a record by id, or nil if absent.
func (s *SQLiteStore) Get(ctx context.Context, kind models.EntityKind, id string) (*models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var payload string
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = ?`, table)
	err = s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec models.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("corrupt payload for %s/%s: %w", kind, id, err)
	}
	return &rec, nil
}

// Put records a local edit: the envelope is stamped with the current wall
// clock and the record goes back to pending so the next round picks it up.
func (s *SQLiteStore) Put(ctx context.Context, kind models.EntityKind, rec models.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Touch()
	rec.SyncStatus = models.StatusPending
	rec.SyncError = ""
	return s.Upsert(ctx, kind, rec)
}

// SoftDelete marks a record deleted. Deletion is a normal field mutation and
// synchronizes like any other edit.
func (s *SQLiteStore) SoftDelete(ctx context.Context, kind models.EntityKind, id string) error {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no %s record with id %s", kind, id)
	}
	rec.IsDeleted = true
	return s.Put(ctx, kind, *rec)
}

// MarkError flags a server-rejected record without touching its payload.
func (s *SQLiteStore) MarkError(ctx context.Context, kind models.EntityKind, id, message string) error {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no %s record with id %s", kind, id)
	}
	rec.SyncStatus = models.StatusError
	rec.SyncError = message
	return s.Upsert(ctx, kind, *rec)
}

// CountByStatus returns how many records of a kind sit in each sync status.
func (s *SQLiteStore) CountByStatus(ctx context.Context, kind models.EntityKind) (map[models.SyncStatus]int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT sync_status, COUNT(*) FROM %s GROUP BY sync_status`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.SyncStatus(status)] = n
	}
	return counts, rows.Err()
}

// GetSetting returns the stored value for key, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// PutSetting stores or replaces a setting value.
func (s *SQLiteStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// AppendAuditLog enqueues an audit entry for transmission on the next round.
// Business code anywhere in the client may call this.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, entry models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, timestamp, actor_username, action, details)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, entry.ID, entry.Timestamp, entry.ActorUsername, entry.Action, details)
	return err
}

// PendingAuditLogs returns the outbox in submission order.
func (s *SQLiteStore) PendingAuditLogs(ctx context.Context) ([]models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_username, action, details
		FROM audit_outbox ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.ActorUsername, &entry.Action, &details); err != nil {
			return nil, err
		}
		if details.Valid {
			entry.Details = json.RawMessage(details.String)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// MarkAuditLogsSent drops acknowledged entries from the outbox.
func (s *SQLiteStore) MarkAuditLogsSent(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM audit_outbox WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) selectRecords(ctx context.Context, query string, args ...interface{}) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("corrupt payload: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
