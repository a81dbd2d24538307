package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncStatus is the client-side bookkeeping state of a synchronized record.
// The server never uses it for arbitration; it persists the value only for
// traceability.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusPending SyncStatus = "pending"
	StatusError   SyncStatus = "error"
)

// EntityKind identifies one synchronized table. The string value is the wire
// tag used as a key inside the "changes" and "updates" objects.
type EntityKind string

const (
	KindEmployees                EntityKind = "employees"
	KindUsers                    EntityKind = "users"
	KindDailyTimeRecords         EntityKind = "dailyTimeRecords"
	KindTheoreticalShiftPatterns EntityKind = "theoreticalShiftPatterns"
	KindAssignedShifts           EntityKind = "assignedShifts"
	KindShiftReports             EntityKind = "shiftReports"
	KindAppSettings              EntityKind = "appSettings"
)

// Kinds returns every entity kind in a fixed order. Iteration over request
// maps always goes through this list so responses are deterministic.
func Kinds() []EntityKind {
	return []EntityKind{
		KindEmployees,
		KindUsers,
		KindDailyTimeRecords,
		KindTheoreticalShiftPatterns,
		KindAssignedShifts,
		KindShiftReports,
		KindAppSettings,
	}
}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Syncable is the envelope embedded in every synchronized entity.
type Syncable struct {
	ID           string     `db:"id" json:"id"`
	LastModified int64      `db:"last_modified" json:"lastModified"`
	SyncStatus   SyncStatus `db:"sync_status" json:"syncStatus"`
	IsDeleted    bool       `db:"is_deleted" json:"isDeleted"`
	SyncError    string     `db:"sync_error" json:"syncError,omitempty"`
}

// Touch stamps the envelope with the current wall clock. Whichever side
// mutates a record calls this before persisting.
func (s *Syncable) Touch() {
	s.LastModified = time.Now().UnixMilli()
}

// Envelope JSON keys lifted out of the domain payload by the Record codecs.
const (
	keyID           = "id"
	keyLastModified = "lastModified"
	keySyncStatus   = "syncStatus"
	keyIsDeleted    = "isDeleted"
	keySyncError    = "syncError"
)

// Record is a synchronized entity as it travels through the protocol: the
// Syncable envelope plus whatever domain fields the entity kind carries.
// Domain fields are kept verbatim as raw JSON so the sync path never has to
// understand them.
type Record struct {
	Syncable
	Fields map[string]json.RawMessage
}

// UnmarshalJSON splits the flat wire object into envelope and opaque fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := all[key]
		if !ok {
			return nil
		}
		delete(all, key)
		return json.Unmarshal(raw, dst)
	}

	if err := take(keyID, &r.ID); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	if err := take(keyLastModified, &r.LastModified); err != nil {
		return fmt.Errorf("invalid lastModified: %w", err)
	}
	if err := take(keySyncStatus, &r.SyncStatus); err != nil {
		return fmt.Errorf("invalid syncStatus: %w", err)
	}
	if err := take(keyIsDeleted, &r.IsDeleted); err != nil {
		return fmt.Errorf("invalid isDeleted: %w", err)
	}
	if err := take(keySyncError, &r.SyncError); err != nil {
		return fmt.Errorf("invalid syncError: %w", err)
	}

	r.Fields = all
	return nil
}

// MarshalJSON flattens envelope and domain fields back into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		merged[k] = v
	}
	merged[keyID] = r.ID
	merged[keyLastModified] = r.LastModified
	merged[keySyncStatus] = r.SyncStatus
	merged[keyIsDeleted] = r.IsDeleted
	if r.SyncError != "" {
		merged[keySyncError] = r.SyncError
	}
	return json.Marshal(merged)
}

// Decode unmarshals the full record (envelope plus domain fields) into a
// typed entity struct such as Employee or DailyTimeRecord.
func (r Record) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// NewRecord builds a Record from a typed entity struct.
func NewRecord(entity any) (Record, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// AuditLog is an append-only action trail entry. It is not Syncable: there is
// no conflict dimension, and id uniqueness makes resubmission idempotent.
type AuditLog struct {
	ID            string          `db:"id" json:"id"`
	Timestamp     int64           `db:"timestamp" json:"timestamp"`
	ActorUsername string          `db:"actor_username" json:"actorUsername"`
	Action        string          `db:"action" json:"action"`
	Details       json.RawMessage `db:"details" json:"details,omitempty"`
}
