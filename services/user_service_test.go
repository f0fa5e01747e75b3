package services

import (
	"context"
	"errors"
	"testing"

	"case_relay_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	officer := createTestOfficer(t, db, "P1", models.RoleOfficer)
	other := createTestOfficer(t, db, "P2", models.RoleOfficer)
	admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
	svc := NewUserService(db)

	t.Run("Officer edits own profile", func(t *testing.T) {
		updated, events, err := svc.UpdateProfile(ctx, officer.ID, UserUpdate{
			FirstName: stringPtr(" Dana "),
			Rank:      stringPtr("Sergeant"),
		}, ActorFromUser(officer))
		require.NoError(t, err)
		assert.Equal(t, "Dana", updated.FirstName)
		assert.Equal(t, "Sergeant", *updated.Rank)
		assert.Equal(t, "user.profile_updated", events[0].EventName())
	})

	t.Run("Officer cannot edit someone else", func(t *testing.T) {
		_, _, err := svc.UpdateProfile(ctx, other.ID, UserUpdate{FirstName: stringPtr("X")}, ActorFromUser(officer))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Admin edits anyone", func(t *testing.T) {
		updated, _, err := svc.UpdateProfile(ctx, other.ID, UserUpdate{Department: stringPtr("Narcotics")}, ActorFromUser(admin))
		require.NoError(t, err)
		assert.Equal(t, "Narcotics", *updated.Department)
	})

	t.Run("Email must be valid and unique", func(t *testing.T) {
		_, _, err := svc.UpdateProfile(ctx, officer.ID, UserUpdate{Email: stringPtr("nope")}, ActorFromUser(officer))
		assert.ErrorIs(t, err, ErrValidation)

		_, _, err = svc.UpdateProfile(ctx, officer.ID, UserUpdate{Email: stringPtr(other.Email)}, ActorFromUser(officer))
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Email is already in use", Reason(err, ""))
	})

	t.Run("Missing user is not found", func(t *testing.T) {
		_, _, err := svc.UpdateProfile(ctx, 999, UserUpdate{}, ActorFromUser(admin))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	officer := createTestOfficer(t, db, "P1", models.RoleOfficer)
	admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
	svc := NewUserService(db)

	_, _, err := svc.ChangeRole(ctx, officer.ID, models.RoleAdmin, ActorFromUser(officer))
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.ChangeRole(ctx, officer.ID, "Commissioner", ActorFromUser(admin))
	assert.ErrorIs(t, err, ErrValidation)

	updated, events, err := svc.PromoteToAdmin(ctx, officer.ID, ActorFromUser(admin))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, models.RoleAdmin, events[0].(UserRoleChanged).Role)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
	svc := NewUserService(db)

	input := NewUser{PoliceID: "P300", FirstName: "Ari", LastName: "Stone", Email: "ari@caserelay.test"}
	user, passcode, events, err := svc.Create(ctx, input, ActorFromUser(admin))
	require.NoError(t, err)
	assert.NoError(t, ValidatePasscode(passcode))
	assert.True(t, CheckPassword(passcode, user.PasscodeHash))
	assert.True(t, user.RequirePasswordReset)
	assert.Equal(t, models.RoleOfficer, user.Role)
	assert.Equal(t, passcode, events[0].(UserRegistered).TemporaryPasscode)

	_, _, _, err = svc.Create(ctx, input, ActorFromUser(admin))
	assert.ErrorIs(t, err, ErrValidation)

	_, _, _, err = svc.Create(ctx, NewUser{PoliceID: "P301", FirstName: "A", LastName: "B", Email: "b@caserelay.test"}, ActorFromUser(user))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGenerateTemporaryPasscode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		passcode, err := GenerateTemporaryPasscode()
		require.NoError(t, err)
		assert.NoError(t, ValidatePasscode(passcode))
		assert.False(t, seen[passcode])
		seen[passcode] = true
	}
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Cases move to the unassigned queue", func(t *testing.T) {
		db := setupServiceTestDB(t)
		admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
		leaving := createTestOfficer(t, db, "P1", models.RoleOfficer)
		createTestOfficer(t, db, "P2", models.RoleOfficer)
		cases := newTestCaseService(db)
		first := createTestCase(t, cases, ActorFromUser(leaving), "")
		second := createTestCase(t, cases, ActorFromUser(leaving), "")
		untouched := createTestCase(t, cases, ActorFromUser(admin), "P2")
		db.Create(&models.Notification{UserID: leaving.ID, Title: "hello", Type: models.NotificationTypeSystem})

		svc := NewUserService(db)
		events, err := svc.Delete(ctx, leaving.ID, ActorFromUser(admin))
		require.NoError(t, err)
		deleted := events[0].(UserDeleted)
		assert.Equal(t, []uint{first.ID, second.ID}, deleted.ReassignedCases)

		for _, id := range []uint{first.ID, second.ID} {
			c, err := cases.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.UnassignedOfficerID, c.AssignedOfficerID)
			assert.Equal(t, "P1", *c.PreviousOfficerID)
		}
		c, err := cases.Get(ctx, untouched.ID)
		require.NoError(t, err)
		assert.Equal(t, "P2", c.AssignedOfficerID)

		_, err = svc.GetByID(ctx, leaving.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		var notifications int64
		db.Model(&models.Notification{}).Where("user_id = ?", leaving.ID).Count(&notifications)
		assert.Equal(t, int64(0), notifications)
	})

	t.Run("A failed reassignment rolls everything back", func(t *testing.T) {
		db := setupServiceTestDB(t)
		admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
		leaving := createTestOfficer(t, db, "P1", models.RoleOfficer)
		cases := newTestCaseService(db)
		first := createTestCase(t, cases, ActorFromUser(leaving), "")
		second := createTestCase(t, cases, ActorFromUser(leaving), "")

		// Fail the update of the second case after the first one was written
		require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_second_case", func(tx *gorm.DB) {
			if c, ok := tx.Statement.Model.(*models.Case); ok && c.ID == second.ID {
				tx.AddError(errors.New("disk full"))
			}
		}))

		svc := NewUserService(db)
		_, err := svc.Delete(ctx, leaving.ID, ActorFromUser(admin))
		assert.ErrorIs(t, err, ErrPersistence)

		c, err := cases.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "P1", c.AssignedOfficerID)
		assert.Nil(t, c.PreviousOfficerID)

		user, err := svc.GetByID(ctx, leaving.ID)
		require.NoError(t, err)
		assert.Equal(t, "P1", user.PoliceID)
	})

	t.Run("Only admins delete and never themselves", func(t *testing.T) {
		db := setupServiceTestDB(t)
		admin := createTestOfficer(t, db, "ADM1", models.RoleAdmin)
		officer := createTestOfficer(t, db, "P1", models.RoleOfficer)
		svc := NewUserService(db)

		_, err := svc.Delete(ctx, admin.ID, ActorFromUser(officer))
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.Delete(ctx, admin.ID, ActorFromUser(admin))
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.Delete(ctx, 999, ActorFromUser(admin))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
