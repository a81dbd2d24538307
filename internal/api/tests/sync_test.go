package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftsync/internal/api/testutils"
	"shiftsync/internal/models"
)

func employeeRecord(t *testing.T, id string, lastModified int64, name string) models.Record {
	t.Helper()
	rec, err := models.NewRecord(models.Employee{
		Syncable: models.Syncable{
			ID:           id,
			LastModified: lastModified,
			SyncStatus:   models.StatusPending,
		},
		Name: name,
	})
	require.NoError(t, err)
	return rec
}

func TestSyncEndToEnd(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	req := models.SyncRequest{
		LastSyncTimestamp: 0,
		Changes: map[models.EntityKind][]models.Record{
			models.KindEmployees: {employeeRecord(t, "E1", 1000, "Ana")},
		},
		AuditLogs: []models.AuditLog{{
			ID:            "L1",
			Timestamp:     1000,
			ActorUsername: "ana",
			Action:        "employee-created",
			Details:       json.RawMessage(`{"employeeId":"E1"}`),
		}},
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/sync",
		req, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Updates.Records[models.KindEmployees], 1)
	assert.Equal(t, "E1", resp.Updates.Records[models.KindEmployees][0].ID)
	assert.Equal(t, models.StatusSynced, resp.Updates.Records[models.KindEmployees][0].SyncStatus)
	require.Len(t, resp.Updates.AuditLogs, 1)
	assert.Equal(t, "L1", resp.Updates.AuditLogs[0].ID)
	assert.Empty(t, resp.Conflicts)
	assert.Empty(t, resp.Errors)
	assert.Positive(t, resp.NewSyncTimestamp)
}

func TestSyncConflictBetweenTwoClients(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Client A establishes E1 at t=1000
	reqA := models.SyncRequest{
		Changes: map[models.EntityKind][]models.Record{
			models.KindEmployees: {employeeRecord(t, "E1", 1000, "Ana")},
		},
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/sync",
		reqA, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	// Client B proposes a staler E1
	tokenB := testutils.MintToken(t, "second-device")
	reqB := models.SyncRequest{
		Changes: map[models.EntityKind][]models.Record{
			models.KindEmployees: {employeeRecord(t, "E1", 500, "Ana (stale)")},
		},
	}
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/sync",
		reqB, testutils.AuthHeaders(tokenB))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "E1", resp.Conflicts[0].ClientRecordID)
	require.Len(t, resp.Updates.Records[models.KindEmployees], 1)
	assert.Equal(t, int64(1000), resp.Updates.Records[models.KindEmployees][0].LastModified)
}

func TestSyncRejectsMalformedBody(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/sync",
		"not an object", testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "INVALID_REQUEST", errResp.Code)
}

func TestBootstrapEndToEnd(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Seed through the sync endpoint: one live, one soft-deleted employee
	live := employeeRecord(t, "E1", 1000, "Ana")
	deleted := employeeRecord(t, "E2", 1000, "Luis")
	deleted.IsDeleted = true
	req := models.SyncRequest{
		Changes: map[models.EntityKind][]models.Record{
			models.KindEmployees: {live, deleted},
		},
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/sync",
		req, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	// Default bootstrap excludes soft-deleted rows
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/bootstrap",
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.BootstrapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data[models.KindEmployees], 1)
	assert.Equal(t, "E1", resp.Data[models.KindEmployees][0].ID)
	assert.Positive(t, resp.NewSyncTimestamp)

	// includeDeleted=true pulls the whole table
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/bootstrap?includeDeleted=true",
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data[models.KindEmployees], 2)
}
