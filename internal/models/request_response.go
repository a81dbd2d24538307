package models

import "encoding/json"

// Request models

// SyncRequest is the body of POST /api/sync: everything the client changed
// since its watermark, plus the watermark itself.
type SyncRequest struct {
	LastSyncTimestamp int64                   `json:"lastSyncTimestamp"`
	Changes           map[EntityKind][]Record `json:"changes"`
	AuditLogs         []AuditLog              `json:"auditLogs,omitempty"`
}

// Response models

// RecordIssue points at one submitted record, either a conflict the server
// resolved in its own favor or a validation error the client must fix.
type RecordIssue struct {
	ClientRecordID string `json:"clientRecordId"`
	Message        string `json:"message"`
}

// AuditLogRef acknowledges one stored audit-log entry.
type AuditLogRef struct {
	ID string `json:"id"`
}

// SyncUpdates carries the authoritative post-merge records per entity kind,
// alongside the acknowledged audit-log ids. On the wire the entity kinds and
// "auditLogs" share one object, so it marshals by hand.
type SyncUpdates struct {
	Records   map[EntityKind][]Record
	AuditLogs []AuditLogRef
}

const keyAuditLogs = "auditLogs"

func (u SyncUpdates) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(u.Records)+1)
	for kind, recs := range u.Records {
		merged[string(kind)] = recs
	}
	if len(u.AuditLogs) > 0 {
		merged[keyAuditLogs] = u.AuditLogs
	}
	return json.Marshal(merged)
}

func (u *SyncUpdates) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	if raw, ok := all[keyAuditLogs]; ok {
		if err := json.Unmarshal(raw, &u.AuditLogs); err != nil {
			return err
		}
		delete(all, keyAuditLogs)
	}
	u.Records = make(map[EntityKind][]Record, len(all))
	for tag, raw := range all {
		var recs []Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return err
		}
		u.Records[EntityKind(tag)] = recs
	}
	return nil
}

// SyncResponse is the body returned by POST /api/sync.
type SyncResponse struct {
	NewSyncTimestamp int64         `json:"newSyncTimestamp"`
	Updates          SyncUpdates   `json:"updates"`
	Conflicts        []RecordIssue `json:"conflicts"`
	Errors           []RecordIssue `json:"errors"`
}

// BootstrapResponse is the full-dataset snapshot returned by
// GET /api/bootstrap, used once to cold-populate an empty local store.
type BootstrapResponse struct {
	NewSyncTimestamp int64                   `json:"newSyncTimestamp"`
	Data             map[EntityKind][]Record `json:"data"`
}

// ErrorResponse is the uniform error body for rejected API calls.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
