package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUnmarshalSplitsEnvelope(t *testing.T) {
	data := []byte(`{
		"id": "E1",
		"lastModified": 1000,
		"syncStatus": "pending",
		"isDeleted": false,
		"name": "Ana",
		"position": "Supervisor"
	}`)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Equal(t, "E1", rec.ID)
	assert.Equal(t, int64(1000), rec.LastModified)
	assert.Equal(t, StatusPending, rec.SyncStatus)
	assert.False(t, rec.IsDeleted)
	assert.Empty(t, rec.SyncError)

	// Domain fields stay out of the envelope, verbatim
	assert.Contains(t, rec.Fields, "name")
	assert.Contains(t, rec.Fields, "position")
	assert.NotContains(t, rec.Fields, "id")
	assert.NotContains(t, rec.Fields, "lastModified")
}

func TestRecordRoundTripPreservesUnknownFields(t *testing.T) {
	data := []byte(`{"id":"X","lastModified":5,"syncStatus":"synced","isDeleted":true,` +
		`"nested":{"a":[1,2,3]},"extra":"kept"}`)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var original, round map[string]any
	require.NoError(t, json.Unmarshal(data, &original))
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Equal(t, original, round)
}

func TestRecordMarshalOmitsEmptySyncError(t *testing.T) {
	rec := Record{Syncable: Syncable{ID: "A", LastModified: 1, SyncStatus: StatusSynced}}

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.NotContains(t, m, "syncError")

	rec.SyncError = "rejected"
	out, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "rejected", m["syncError"])
}

func TestRecordDecodeToTypedEntity(t *testing.T) {
	data := []byte(`{"id":"E1","lastModified":1000,"syncStatus":"pending","isDeleted":false,` +
		`"name":"Ana","department":"Ops"}`)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))

	var emp Employee
	require.NoError(t, rec.Decode(&emp))
	assert.Equal(t, "E1", emp.ID)
	assert.Equal(t, "Ana", emp.Name)
	assert.Equal(t, "Ops", emp.Department)
}

func TestNewRecordFromEntity(t *testing.T) {
	emp := Employee{
		Syncable: Syncable{ID: "E2", LastModified: 42, SyncStatus: StatusPending},
		Name:     "Luis",
	}

	rec, err := NewRecord(emp)
	require.NoError(t, err)
	assert.Equal(t, "E2", rec.ID)
	assert.Equal(t, int64(42), rec.LastModified)
	assert.Contains(t, rec.Fields, "name")
}

func TestSyncUpdatesWireShape(t *testing.T) {
	updates := SyncUpdates{
		Records: map[EntityKind][]Record{
			KindEmployees: {{Syncable: Syncable{ID: "E1", LastModified: 1, SyncStatus: StatusSynced}}},
		},
		AuditLogs: []AuditLogRef{{ID: "L1"}},
	}

	out, err := json.Marshal(updates)
	require.NoError(t, err)

	// Entity kinds and auditLogs share one object on the wire
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Contains(t, m, "employees")
	assert.Contains(t, m, "auditLogs")

	var back SyncUpdates
	require.NoError(t, json.Unmarshal(out, &back))
	require.Len(t, back.Records[KindEmployees], 1)
	assert.Equal(t, "E1", back.Records[KindEmployees][0].ID)
	require.Len(t, back.AuditLogs, 1)
	assert.Equal(t, "L1", back.AuditLogs[0].ID)
}

func TestEntityKindValid(t *testing.T) {
	for _, kind := range Kinds() {
		assert.True(t, kind.Valid(), string(kind))
	}
	assert.False(t, EntityKind("ledgers").Valid())
}
