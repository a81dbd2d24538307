// Package store is the client-local record store: one table per entity kind,
// a settings table holding the sync watermark, and the audit-log outbox.
package store

import (
	"context"

	"shiftsync/internal/models"
)

// Setting keys owned by the sync engine.
const (
	SettingLastSyncTimestamp = "lastSyncTimestamp"
)

// Store is the persistence contract the sync engine consumes. Implementations
// must make Upsert atomic per record: a record is either fully present or
// absent, never half-written.
type Store interface {
	// PendingOrError returns every record of a kind that must be sent on the
	// next round: fresh local edits plus previously rejected records.
	PendingOrError(ctx context.Context, kind models.EntityKind) ([]models.Record, error)

	// Upsert writes a record verbatim, envelope included.
	Upsert(ctx context.Context, kind models.EntityKind, rec models.Record) error

	// MarkError flags a record the server rejected, without touching its
	// domain fields, so the user can inspect and fix it.
	MarkError(ctx context.Context, kind models.EntityKind, id, message string) error

	// GetSetting returns the stored value for key, or "" when unset.
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error

	// PendingAuditLogs returns the outbox entries not yet acknowledged.
	PendingAuditLogs(ctx context.Context) ([]models.AuditLog, error)

	// MarkAuditLogsSent removes acknowledged entries from the outbox.
	MarkAuditLogsSent(ctx context.Context, ids []string) error
}
