package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"case_relay_go/db"
	"case_relay_go/models"

	"gorm.io/gorm"
)

// UserUpdate carries profile edits. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	MobilePhone     *string
	WorkPhone       *string
	BadgeNumber     *string
	Rank            *string
	Department      *string
	Division        *string
	Precinct        *string
	Station         *string
	SpecialUnit     *string
	SupervisorID    *string
	ProfileImageURL *string
	Clearance       *string
}

// NewUser is the payload for an account created by an administrator
type NewUser struct {
	PoliceID    string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Role        string
	BadgeNumber *string
	Rank        *string
	Department  *string
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, userLookupError(err, fmt.Sprint(userID))
	}
	return &user, nil
}

func (s *UserService) GetByPoliceID(ctx context.Context, policeID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("police_id = ?", policeID).First(&user).Error; err != nil {
		return nil, userLookupError(err, policeID)
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("police_id ASC").Find(&users).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to list users")
	}
	return users, nil
}

func userLookupError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("User %s not found", id)
	}
	return persistenceFailure(err, "Failed to load user %s", id)
}

// UpdateProfile applies profile edits. Officers may edit themselves, admins anyone.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update UserUpdate, actor Actor) (*models.User, []Event, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, nil, newServiceError(ErrForbidden, nil, "You can only update your own profile")
	}

	updates := map[string]interface{}{}
	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		if name == "" || len(name) > MaxNameLength {
			return nil, nil, validationFailure("First name must be 1 to %d characters", MaxNameLength)
		}
		updates["first_name"] = name
	}
	if update.LastName != nil {
		name := strings.TrimSpace(*update.LastName)
		if name == "" || len(name) > MaxNameLength {
			return nil, nil, validationFailure("Last name must be 1 to %d characters", MaxNameLength)
		}
		updates["last_name"] = name
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, nil, validationFailure("Invalid email address")
		}
		updates["email"] = email
	}
	if update.Phone != nil {
		updates["phone"] = strings.TrimSpace(*update.Phone)
	}
	optional := map[string]*string{
		"mobile_phone":      update.MobilePhone,
		"work_phone":        update.WorkPhone,
		"badge_number":      update.BadgeNumber,
		"rank":              update.Rank,
		"department":        update.Department,
		"division":          update.Division,
		"precinct":          update.Precinct,
		"station":           update.Station,
		"special_unit":      update.SpecialUnit,
		"supervisor_id":     update.SupervisorID,
		"profile_image_url": update.ProfileImageURL,
		"clearance":         update.Clearance,
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return userLookupError(err, fmt.Sprint(userID))
		}
		if email, ok := updates["email"]; ok && email != user.Email {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
				return persistenceFailure(err, "Failed to check email")
			}
			if count > 0 {
				return validationFailure("Email is already in use")
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return persistenceFailure(err, "Failed to update profile")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, []Event{UserProfileUpdated{UserID: userID, Actor: actor}}, nil
}

// ChangeRole sets a declared role on the user. Admin only.
func (s *UserService) ChangeRole(ctx context.Context, userID uint, role string, actor Actor) (*models.User, []Event, error) {
	if !actor.IsAdmin() {
		return nil, nil, newServiceError(ErrForbidden, nil, "Only administrators can change roles")
	}
	if !models.IsValidRole(role) {
		return nil, nil, validationFailure("Invalid role: %s", role)
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, nil, persistenceFailure(err, "Failed to change role")
	}
	user.Role = role

	LogSecurityEvent("ROLE_CHANGED", user.PoliceID, fmt.Sprintf("Role set to %s by %s", role, actor.PoliceID))
	return user, []Event{UserRoleChanged{UserID: userID, Role: role, Actor: actor}}, nil
}

func (s *UserService) PromoteToAdmin(ctx context.Context, userID uint, actor Actor) (*models.User, []Event, error) {
	return s.ChangeRole(ctx, userID, models.RoleAdmin, actor)
}

// Create opens an account with a temporary passcode that must be changed at first login
func (s *UserService) Create(ctx context.Context, input NewUser, actor Actor) (*models.User, string, []Event, error) {
	if !actor.IsAdmin() {
		return nil, "", nil, newServiceError(ErrForbidden, nil, "Only administrators can create users")
	}

	passcode, err := GenerateTemporaryPasscode()
	if err != nil {
		return nil, "", nil, err
	}
	if err := ValidateRegistration(RegisterInput{
		PoliceID:  input.PoliceID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Passcode:  passcode,
	}); err != nil {
		return nil, "", nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleOfficer
	}
	if !models.IsValidRole(role) {
		return nil, "", nil, validationFailure("Invalid role: %s", role)
	}

	hash, err := HashPassword(passcode)
	if err != nil {
		return nil, "", nil, err
	}
	user := &models.User{
		PoliceID:             strings.TrimSpace(input.PoliceID),
		FirstName:            strings.TrimSpace(input.FirstName),
		LastName:             strings.TrimSpace(input.LastName),
		Email:                strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:                strings.TrimSpace(input.Phone),
		BadgeNumber:          input.BadgeNumber,
		Rank:                 input.Rank,
		Department:           input.Department,
		PasscodeHash:         hash,
		Role:                 role,
		IsActive:             true,
		RequirePasswordReset: true,
	}

	err = db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("police_id = ? OR email = ?", user.PoliceID, user.Email).
			Count(&count).Error; err != nil {
			return persistenceFailure(err, "Failed to check existing users")
		}
		if count > 0 {
			return validationFailure("User already exists")
		}
		if err := tx.Create(user).Error; err != nil {
			return persistenceFailure(err, "Failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, "", nil, err
	}

	LogSecurityEvent("USER_CREATED", user.PoliceID, fmt.Sprintf("Created by %s", actor.PoliceID))
	events := []Event{UserRegistered{
		UserID:            user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		PoliceID:          user.PoliceID,
		TemporaryPasscode: passcode,
	}}
	return user, passcode, events, nil
}

// Delete removes the user after moving every case they own to the
// unassigned queue. Reassignment and removal commit together or not at all.
func (s *UserService) Delete(ctx context.Context, userID uint, actor Actor) ([]Event, error) {
	if !actor.IsAdmin() {
		return nil, newServiceError(ErrForbidden, nil, "Only administrators can delete users")
	}
	if actor.UserID == userID {
		return nil, validationFailure("You cannot delete your own account")
	}

	var (
		removed    models.User
		reassigned []uint
	)
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&removed, userID).Error; err != nil {
			return userLookupError(err, fmt.Sprint(userID))
		}

		var cases []models.Case
		if err := tx.Where("assigned_officer_id = ?", removed.PoliceID).Order("id ASC").Find(&cases).Error; err != nil {
			return persistenceFailure(err, "Failed to load cases for %s", removed.PoliceID)
		}
		for i := range cases {
			c := &cases[i]
			err := tx.Model(c).Updates(map[string]interface{}{
				"assigned_officer_id": models.UnassignedOfficerID,
				"previous_officer_id": removed.PoliceID,
			}).Error
			if err != nil {
				return persistenceFailure(err, "Failed to reassign case %d", c.ID)
			}
			reassigned = append(reassigned, c.ID)
		}

		if err := tx.Where("user_id = ?", removed.ID).Delete(&models.Notification{}).Error; err != nil {
			return persistenceFailure(err, "Failed to delete notifications")
		}
		if err := tx.Where("user_id = ?", removed.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return persistenceFailure(err, "Failed to delete reset tokens")
		}
		if err := tx.Delete(&removed).Error; err != nil {
			return persistenceFailure(err, "Failed to delete user")
		}
		return nil
	})
	if err != nil {
		LogSecurityEvent("USER_DELETE_FAILED", fmt.Sprint(userID), err.Error())
		return nil, err
	}

	LogSecurityEvent("USER_DELETED", removed.PoliceID, fmt.Sprintf("Deleted by %s, %d cases unassigned", actor.PoliceID, len(reassigned)))
	return []Event{UserDeleted{
		PoliceID:        removed.PoliceID,
		Email:           removed.Email,
		FirstName:       removed.FirstName,
		ReassignedCases: reassigned,
		Actor:           actor,
	}}, nil
}

// GenerateTemporaryPasscode returns a random passcode that satisfies the policy
func GenerateTemporaryPasscode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	digit, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return fmt.Sprintf("Cr%s#%d", hex.EncodeToString(buf), digit.Int64()), nil
}
