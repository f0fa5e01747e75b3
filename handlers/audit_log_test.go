package handlers

import (
	"net/http"
	"testing"

	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuditLogsHandler(t *testing.T) {
	database := setupTestDB(t)
	admin := createTestUser(t, database, "ADM1", models.RoleAdmin)
	actx := services.AuditContextFromActor(services.ActorFromUser(admin))

	require.NoError(t, services.RecordAuditEvent(database, actx, services.AuditEntry{
		Action: models.AuditActionCreate, ResourceType: "Case", ResourceID: "1", Description: "Case created",
	}))
	require.NoError(t, services.RecordAuditEvent(database, actx, services.AuditEntry{
		Action: models.AuditActionHandover, ResourceType: "Case", ResourceID: "1", Description: "Case handed over",
	}))
	require.NoError(t, services.RecordAuditEvent(database, actx, services.AuditEntry{
		Action: models.AuditActionUpdate, ResourceType: "User", ResourceID: "2", Description: "Role changed",
	}))

	t.Run("Filters by resource type", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/audit-logs?resource_type=Case", nil)
		asUser(c, admin)

		require.NoError(t, GetAuditLogsHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(2), body["total"])
		assert.Len(t, body["logs"], 2)
	})

	t.Run("Paginates", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/audit-logs?page=2&page_size=2", nil)
		asUser(c, admin)

		require.NoError(t, GetAuditLogsHandler(c))
		body := decodeBody(t, rec)
		assert.Equal(t, float64(3), body["total"])
		assert.Len(t, body["logs"], 1)
	})

	t.Run("Malformed date", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/audit-logs?date_from=yesterday", nil)
		asUser(c, admin)

		require.NoError(t, GetAuditLogsHandler(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Resource history", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/audit-logs/Case/1", nil)
		setParams(c, "type", "Case", "id", "1")

		require.NoError(t, GetResourceHistoryHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Case handed over")
	})
}
