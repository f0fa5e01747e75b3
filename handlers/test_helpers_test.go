package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"case_relay_go/config"
	"case_relay_go/db"
	"case_relay_go/middleware"
	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPasscode = "Passw0rd!"

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Async audit writes queue behind the request instead of hitting table locks
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.CaseComment{},
		&models.CaseDocument{},
		&models.Notification{},
		&models.PasswordResetToken{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		JWTSecret:       "handler-test-secret-with-enough-length",
		JWTIssuer:       "caserelay",
		JWTAudience:     "caserelay-clients",
		JWTExpiryHours:  2,
		MaxFailedLogins: 3,
		LockoutMinutes:  30,
		EmailTestMode:   true,
		AppURL:          "http://localhost:8080",
	}
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set(ContextKeyConfig, testConfig())

	return e, c, rec
}

// jsonBody encodes v as a request body
func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func createTestUser(t *testing.T, database *gorm.DB, policeID, role string) *models.User {
	t.Helper()
	hash, err := services.HashPassword(testPasscode)
	require.NoError(t, err)
	user := &models.User{
		PoliceID:     policeID,
		FirstName:    "Officer",
		LastName:     policeID,
		Email:        strings.ToLower(policeID) + "@caserelay.test",
		PasscodeHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, database.Create(user).Error)
	return user
}

// asUser authenticates the request context as user
func asUser(c echo.Context, user *models.User) {
	c.Set(middleware.ContextKeyUser, user)
}

func setParams(c echo.Context, pairs ...string) {
	var names, values []string
	for i := 0; i+1 < len(pairs); i += 2 {
		names = append(names, pairs[i])
		values = append(values, pairs[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func createTestCase(t *testing.T, database *gorm.DB, creator *models.User, title string) *models.Case {
	t.Helper()
	svc := services.NewCaseService(database, services.NewOfficerDirectory(database))
	c, _, err := svc.Create(context.Background(), services.CaseDraft{
		Title:       title,
		Description: title + " description",
	}, services.ActorFromUser(creator))
	require.NoError(t, err)
	return c
}

func assertMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.Equal(t, message, decodeBody(t, rec)["message"])
}

func stringToPtr(s string) *string {
	return &s
}
