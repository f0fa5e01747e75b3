package services

import (
	"encoding/json"
	"testing"
	"time"

	"case_relay_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuditEvent(t *testing.T) {
	db := setupServiceTestDB(t)
	officer := createTestOfficer(t, db, "P1", models.RoleOfficer)

	ctx := AuditContextFromActor(ActorFromUser(officer))
	ctx.RequestID = "req-1"
	ctx.IPAddress = "10.0.0.8"

	err := RecordAuditEvent(db, ctx, AuditEntry{
		Action:       models.AuditActionStatusChange,
		ResourceType: "Case",
		ResourceID:   "42",
		ResourceName: "CR-2026-00042",
		Description:  "Status updated",
		OldValues:    map[string]interface{}{"status": "Pending"},
		NewValues:    map[string]interface{}{"status": "Open"},
	})
	require.NoError(t, err)

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "resource_id = ?", "42").Error)
	assert.Equal(t, officer.ID, *entry.UserID)
	assert.Equal(t, "P1", entry.PoliceID)
	assert.Equal(t, models.RoleOfficer, entry.UserRole)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "10.0.0.8", entry.IPAddress)

	var savedOld, savedNew map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entry.OldValues), &savedOld))
	require.NoError(t, json.Unmarshal([]byte(entry.NewValues), &savedNew))
	assert.Equal(t, "Pending", savedOld["status"])
	assert.Equal(t, "Open", savedNew["status"])

	changes := entry.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "status", changes[0].Field)

	// Audit rows are immutable
	assert.Error(t, db.Model(&entry).Update("description", "edited").Error)
}

func TestLogAuditEvent(t *testing.T) {
	db := setupServiceTestDB(t)

	LogAuditEvent(db, AuditContextFromActor(SystemActor()), AuditEntry{
		Action:       models.AuditActionCreate,
		ResourceType: "User",
		ResourceID:   "7",
	})

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.AuditLog{}).Where("resource_type = ? AND resource_id = ?", "User", "7").Count(&count)
		return count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGetResourceAuditHistory(t *testing.T) {
	db := setupServiceTestDB(t)

	db.Create(&models.AuditLog{ResourceType: "Case", ResourceID: "1", Action: models.AuditActionCreate, CreatedAt: time.Now().Add(-2 * time.Hour)})
	db.Create(&models.AuditLog{ResourceType: "Case", ResourceID: "1", Action: models.AuditActionHandover, CreatedAt: time.Now().Add(-time.Hour)})
	db.Create(&models.AuditLog{ResourceType: "Case", ResourceID: "2", Action: models.AuditActionCreate})

	logs, err := GetResourceAuditHistory(db, "Case", "1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionHandover, logs[0].Action)
	assert.Equal(t, models.AuditActionCreate, logs[1].Action)
}

func TestGetAuditLogs(t *testing.T) {
	db := setupServiceTestDB(t)

	for i := 0; i < 5; i++ {
		db.Create(&models.AuditLog{PoliceID: "P1", ResourceType: "Case", ResourceID: "1", Action: models.AuditActionComment})
	}
	db.Create(&models.AuditLog{PoliceID: "P2", ResourceType: "User", ResourceID: "9", Action: models.AuditActionDelete})

	logs, total, err := GetAuditLogs(db, AuditLogFilters{PoliceID: "P1"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, logs, 2)

	logs, total, err = GetAuditLogs(db, AuditLogFilters{ResourceType: "User", Action: string(models.AuditActionDelete)}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "P2", logs[0].PoliceID)

	logs, total, err = GetAuditLogs(db, AuditLogFilters{DateFrom: time.Now().Add(time.Hour)}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, logs)
}
