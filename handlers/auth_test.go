package handlers

import (
	"net/http"
	"testing"

	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHandler(t *testing.T) {
	database := setupTestDB(t)

	payload := map[string]string{
		"policeId":  "P1000",
		"firstName": "Ada",
		"lastName":  "Okafor",
		"email":     "ada@caserelay.test",
		"phone":     "555-0100",
		"passcode":  testPasscode,
	}

	t.Run("Success", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/register", jsonBody(t, payload))

		err := RegisterHandler(c)
		assert.NoError(t, err)
		assertMessage(t, rec, http.StatusCreated, "User registered successfully")

		var user models.User
		require.NoError(t, database.Where("police_id = ?", "P1000").First(&user).Error)
		assert.Equal(t, models.RoleOfficer, user.Role)
		assert.NotContains(t, rec.Body.String(), user.PasscodeHash)
	})

	t.Run("Duplicate police id", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/register", jsonBody(t, payload))

		err := RegisterHandler(c)
		assert.NoError(t, err)
		assertMessage(t, rec, http.StatusBadRequest, "User already exists")
	})

	t.Run("Weak passcode", func(t *testing.T) {
		weak := map[string]string{
			"policeId":  "P1001",
			"firstName": "Ben",
			"lastName":  "Ito",
			"email":     "ben@caserelay.test",
			"passcode":  "short",
		}
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/register", jsonBody(t, weak))

		err := RegisterHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	database := setupTestDB(t)
	createTestUser(t, database, "P2000", models.RoleOfficer)

	login := func(t *testing.T, policeID, passcode string) (int, map[string]interface{}) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
			"policeId": policeID,
			"passcode": passcode,
		}))
		require.NoError(t, LoginHandler(c))
		return rec.Code, decodeBody(t, rec)
	}

	t.Run("Success returns a verifiable token", func(t *testing.T) {
		status, body := login(t, "P2000", testPasscode)
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]interface{})
		token, _ := data["token"].(string)
		require.NotEmpty(t, token)

		claims, err := services.ParseToken(services.TokenConfigFrom(testConfig()), token)
		require.NoError(t, err)
		assert.Equal(t, "P2000", claims.Subject)
	})

	t.Run("Unknown police id", func(t *testing.T) {
		status, body := login(t, "NOPE", testPasscode)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "No Police Account Found!", body["message"])
	})

	t.Run("Missing fields", func(t *testing.T) {
		status, _ := login(t, "", "")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Repeated failures lock the account", func(t *testing.T) {
		createTestUser(t, database, "P2001", models.RoleOfficer)

		status, _ := login(t, "P2001", "Wr0ng!pass")
		assert.Equal(t, http.StatusUnauthorized, status)
		status, _ = login(t, "P2001", "Wr0ng!pass")
		assert.Equal(t, http.StatusUnauthorized, status)
		status, _ = login(t, "P2001", "Wr0ng!pass")
		assert.Equal(t, http.StatusLocked, status)

		// Locked even with the right passcode
		status, _ = login(t, "P2001", testPasscode)
		assert.Equal(t, http.StatusLocked, status)

		var user models.User
		require.NoError(t, database.Where("police_id = ?", "P2001").First(&user).Error)
		assert.False(t, user.IsActive)
		assert.NotNil(t, user.LockoutEnd)
	})
}

func TestChangePasscodeHandler(t *testing.T) {
	database := setupTestDB(t)
	user := createTestUser(t, database, "P3000", models.RoleOfficer)

	t.Run("Wrong current passcode", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/change-passcode", jsonBody(t, map[string]string{
			"currentPasscode": "Wr0ng!pass",
			"newPasscode":     "N3w!Passcode",
		}))
		asUser(c, user)

		require.NoError(t, ChangePasscodeHandler(c))
		assertMessage(t, rec, http.StatusUnauthorized, "Current passcode is incorrect")
	})

	t.Run("Success", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/change-passcode", jsonBody(t, map[string]string{
			"currentPasscode": testPasscode,
			"newPasscode":     "N3w!Passcode",
		}))
		asUser(c, user)

		require.NoError(t, ChangePasscodeHandler(c))
		assertMessage(t, rec, http.StatusOK, "Passcode changed successfully")

		var updated models.User
		require.NoError(t, database.First(&updated, user.ID).Error)
		assert.True(t, services.CheckPassword("N3w!Passcode", updated.PasscodeHash))
	})
}

func TestForgotAndResetPasswordHandlers(t *testing.T) {
	database := setupTestDB(t)
	user := createTestUser(t, database, "P4000", models.RoleOfficer)

	t.Run("Unknown email answers the same way", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/forgot-password", jsonBody(t, map[string]string{
			"email": "nobody@caserelay.test",
		}))

		require.NoError(t, ForgotPasswordHandler(c))
		assertMessage(t, rec, http.StatusOK, "If an account exists for that email, a reset link has been sent")

		var count int64
		database.Model(&models.PasswordResetToken{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Known email issues a token that resets the passcode", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/forgot-password", jsonBody(t, map[string]string{
			"email": user.Email,
		}))
		require.NoError(t, ForgotPasswordHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var token models.PasswordResetToken
		require.NoError(t, database.Where("user_id = ?", user.ID).First(&token).Error)

		_, c, rec = setupEcho(http.MethodPost, "/api/auth/reset-password", jsonBody(t, map[string]string{
			"token":       token.Token,
			"newPasscode": "R3set!Passcode",
		}))
		require.NoError(t, ResetPasswordHandler(c))
		assertMessage(t, rec, http.StatusOK, "Passcode has been reset")

		var updated models.User
		require.NoError(t, database.First(&updated, user.ID).Error)
		assert.True(t, services.CheckPassword("R3set!Passcode", updated.PasscodeHash))
	})

	t.Run("Invalid token", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/reset-password", jsonBody(t, map[string]string{
			"token":       "not-a-token",
			"newPasscode": "R3set!Passcode",
		}))
		require.NoError(t, ResetPasswordHandler(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserInfoAndUnlockHandlers(t *testing.T) {
	database := setupTestDB(t)
	admin := createTestUser(t, database, "ADM1", models.RoleAdmin)
	officer := createTestUser(t, database, "P5000", models.RoleOfficer)

	t.Run("UserInfo returns the caller", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/auth/userinfo", nil)
		asUser(c, officer)

		require.NoError(t, UserInfoHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "P5000", decodeBody(t, rec)["policeId"])
	})

	t.Run("Unlock reactivates a locked account", func(t *testing.T) {
		require.NoError(t, database.Model(officer).Updates(map[string]interface{}{
			"is_active":             false,
			"failed_login_attempts": 3,
		}).Error)

		_, c, rec := setupEcho(http.MethodPost, "/api/auth/unlock/P5000", nil)
		setParams(c, "policeId", "P5000")
		asUser(c, admin)

		require.NoError(t, UnlockAccountHandler(c))
		assertMessage(t, rec, http.StatusOK, "Account unlocked")

		var updated models.User
		require.NoError(t, database.First(&updated, officer.ID).Error)
		assert.True(t, updated.IsActive)
		assert.Equal(t, 0, updated.FailedLoginAttempts)
	})

	t.Run("Unlock by a non-admin is forbidden", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/unlock/ADM1", nil)
		setParams(c, "policeId", "ADM1")
		asUser(c, officer)

		require.NoError(t, UnlockAccountHandler(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSecurityAlertsHandler(t *testing.T) {
	setupTestDB(t)
	services.Monitor = services.NewSecurityMonitor()
	t.Cleanup(func() { services.Monitor = nil })

	t.Run("Empty when nothing failed", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/security/alerts", nil)
		require.NoError(t, SecurityAlertsHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeBody(t, rec)["alerts"])
	})

	t.Run("Failed logins across accounts raise an alert", func(t *testing.T) {
		for _, policeID := range []string{"X1", "X2", "X3"} {
			_, c, _ := setupEcho(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
				"policeId": policeID,
				"passcode": "Wr0ng!pass",
			}))
			require.NoError(t, LoginHandler(c))
		}

		_, c, rec := setupEcho(http.MethodGet, "/api/security/alerts", nil)
		require.NoError(t, SecurityAlertsHandler(c))
		alerts := decodeBody(t, rec)["alerts"].([]interface{})
		require.Len(t, alerts, 1)
		alert := alerts[0].(map[string]interface{})
		assert.Equal(t, "CRITICAL", alert["level"])
		assert.Equal(t, "192.0.2.1", alert["ip"])
	})
}
