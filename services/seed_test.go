package services

import (
	"testing"

	"case_relay_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	t.Run("Creates admin with default passcode", func(t *testing.T) {
		db := setupServiceTestDB(t)

		require.NoError(t, SeedAdmin(db, ""))

		var admin models.User
		require.NoError(t, db.Where("police_id = ?", DefaultAdminPoliceID).First(&admin).Error)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.Equal(t, DefaultAdminEmail, admin.Email)
		assert.True(t, admin.RequirePasswordReset)
		assert.True(t, CheckPassword(DefaultAdminPasscode, admin.PasscodeHash))
	})

	t.Run("Uses configured passcode", func(t *testing.T) {
		db := setupServiceTestDB(t)

		require.NoError(t, SeedAdmin(db, "C0nfigured!Pass"))

		var admin models.User
		require.NoError(t, db.Where("police_id = ?", DefaultAdminPoliceID).First(&admin).Error)
		assert.True(t, CheckPassword("C0nfigured!Pass", admin.PasscodeHash))
	})

	t.Run("Skips when an admin already exists", func(t *testing.T) {
		db := setupServiceTestDB(t)
		createTestOfficer(t, db, "CHIEF1", models.RoleAdmin)

		require.NoError(t, SeedAdmin(db, ""))

		var count int64
		db.Model(&models.User{}).Where("police_id = ?", DefaultAdminPoliceID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Running twice creates one admin", func(t *testing.T) {
		db := setupServiceTestDB(t)

		require.NoError(t, SeedAdmin(db, ""))
		require.NoError(t, SeedAdmin(db, ""))

		var count int64
		db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}
