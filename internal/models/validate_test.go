package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustRecord(t *testing.T, raw string) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestValidateRecordEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "missing id",
			raw:     `{"lastModified":1000,"name":"Ana"}`,
			wantErr: "record id is required",
		},
		{
			name:    "missing lastModified",
			raw:     `{"id":"E1","name":"Ana"}`,
			wantErr: "lastModified must be a positive",
		},
		{
			name: "valid",
			raw:  `{"id":"E1","lastModified":1000,"name":"Ana"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(KindEmployees, mustRecord(t, tt.raw))
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateRecordPerKind(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name string
		kind EntityKind
		raw  string
		ok   bool
	}{
		{"employee with name", KindEmployees, `{"id":"E1","lastModified":1,"name":"Ana"}`, true},
		{"employee without name", KindEmployees, `{"id":"E1","lastModified":1}`, false},
		{"user with valid hash", KindUsers,
			`{"id":"U1","lastModified":1,"username":"ana","passwordHash":"` + string(hash) + `"}`, true},
		{"user with bogus hash", KindUsers,
			`{"id":"U1","lastModified":1,"username":"ana","passwordHash":"plaintext"}`, false},
		{"user without username", KindUsers, `{"id":"U1","lastModified":1}`, false},
		{"dtr clock order ok", KindDailyTimeRecords,
			`{"id":"D1","lastModified":1,"employeeId":"E1","clockIn":100,"clockOut":200}`, true},
		{"dtr clock out before in", KindDailyTimeRecords,
			`{"id":"D1","lastModified":1,"employeeId":"E1","clockIn":200,"clockOut":100}`, false},
		{"dtr still clocked in", KindDailyTimeRecords,
			`{"id":"D1","lastModified":1,"employeeId":"E1","clockIn":200}`, true},
		{"dtr without employee", KindDailyTimeRecords, `{"id":"D1","lastModified":1}`, false},
		{"pattern with name", KindTheoreticalShiftPatterns,
			`{"id":"P1","lastModified":1,"name":"Night"}`, true},
		{"pattern without name", KindTheoreticalShiftPatterns, `{"id":"P1","lastModified":1}`, false},
		{"shift assignment complete", KindAssignedShifts,
			`{"id":"S1","lastModified":1,"employeeId":"E1","date":"2026-03-01"}`, true},
		{"shift assignment without date", KindAssignedShifts,
			`{"id":"S1","lastModified":1,"employeeId":"E1"}`, false},
		{"report with employee", KindShiftReports,
			`{"id":"R1","lastModified":1,"employeeId":"E1"}`, true},
		{"report without employee", KindShiftReports, `{"id":"R1","lastModified":1}`, false},
		{"setting with key", KindAppSettings,
			`{"id":"A1","lastModified":1,"key":"theme"}`, true},
		{"setting without key", KindAppSettings, `{"id":"A1","lastModified":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.kind, mustRecord(t, tt.raw))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateRecordUnknownKind(t *testing.T) {
	err := ValidateRecord(EntityKind("ledgers"), mustRecord(t, `{"id":"X","lastModified":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}
