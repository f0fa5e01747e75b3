package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"case_relay_go/config"
	"case_relay_go/metrics"
	"case_relay_go/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	MinPoliceIDLength = 3
	MaxPoliceIDLength = 10
	MaxNameLength     = 50
)

// HashPassword hashes a passcode using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a passcode against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, policeID, details string) {
	log.Printf("[SECURITY] %s | User: %s | Details: %s", eventType, policeID, details)
}

// RegisterInput is the self-registration payload
type RegisterInput struct {
	PoliceID    string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Passcode    string
	BadgeNumber *string
	Rank        *string
	Department  *string
}

// AuthResult is returned by a successful login
type AuthResult struct {
	Token                string       `json:"token"`
	ExpiresAt            time.Time    `json:"expiresAt"`
	User                 *models.User `json:"user"`
	RequirePasswordReset bool         `json:"requirePasswordReset"`
}

// AuthService handles registration, login and the lockout policy
type AuthService struct {
	DB              *gorm.DB
	Tokens          TokenConfig
	MaxFailedLogins int
	LockoutDuration time.Duration
	AppURL          string

	now func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:              db,
		Tokens:          TokenConfigFrom(cfg),
		MaxFailedLogins: cfg.MaxFailedLogins,
		LockoutDuration: time.Duration(cfg.LockoutMinutes) * time.Minute,
		AppURL:          cfg.AppURL,
		now:             time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// ValidateRegistration checks the registration payload field by field
func ValidateRegistration(input RegisterInput) error {
	policeID := strings.TrimSpace(input.PoliceID)
	if len(policeID) < MinPoliceIDLength || len(policeID) > MaxPoliceIDLength {
		return validationFailure("Police ID must be between %d and %d characters", MinPoliceIDLength, MaxPoliceIDLength)
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return validationFailure("First and last name are required")
	}
	if len(firstName) > MaxNameLength || len(lastName) > MaxNameLength {
		return validationFailure("Names cannot exceed %d characters", MaxNameLength)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return validationFailure("Invalid email address")
	}
	if err := ValidatePasscode(input.Passcode, passcodeIdentifiers(policeID, input.Email, input.BadgeNumber)...); err != nil {
		return err
	}
	return nil
}

// Register creates an officer account from self-registration
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, []Event, error) {
	if err := ValidateRegistration(input); err != nil {
		return nil, nil, err
	}

	policeID := strings.TrimSpace(input.PoliceID)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("police_id = ? OR email = ?", policeID, email).
		Count(&count).Error; err != nil {
		return nil, nil, persistenceFailure(err, "Failed to check existing users")
	}
	if count > 0 {
		return nil, nil, validationFailure("User already exists")
	}

	hash, err := HashPassword(input.Passcode)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	user := &models.User{
		PoliceID:           policeID,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Email:              email,
		Phone:              strings.TrimSpace(input.Phone),
		BadgeNumber:        input.BadgeNumber,
		Rank:               input.Rank,
		Department:         input.Department,
		PasscodeHash:       hash,
		Role:               models.RoleOfficer,
		IsActive:           true,
		LastPasswordChange: &now,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, nil, persistenceFailure(err, "Failed to register user")
	}

	LogSecurityEvent("USER_REGISTERED", user.PoliceID, "Self registration")
	events := []Event{UserRegistered{UserID: user.ID, Email: user.Email, FirstName: user.FirstName, PoliceID: user.PoliceID}}
	return user, events, nil
}

// Authenticate checks credentials and applies the lockout policy. Events
// are returned on failure too, so a lockout notice is still delivered.
func (s *AuthService) Authenticate(ctx context.Context, policeID, passcode string) (*AuthResult, []Event, error) {
	conn := s.DB.WithContext(ctx)

	var user models.User
	err := conn.Where("police_id = ?", strings.TrimSpace(policeID)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("unknown").Inc()
		return nil, nil, newServiceError(ErrUnauthorized, nil, "No Police Account Found!")
	}
	if err != nil {
		return nil, nil, persistenceFailure(err, "Failed to load user")
	}

	now := s.clock()
	if !user.IsActive {
		if user.IsLockedOut(now) {
			metrics.AuthAttempts.WithLabelValues("locked").Inc()
			if user.LockoutEnd == nil {
				return nil, nil, newServiceError(ErrLocked, nil, "Account is deactivated. Contact an administrator.")
			}
			return nil, nil, newServiceError(ErrLocked, nil, "Account is locked until %s", user.LockoutEnd.UTC().Format(time.RFC3339))
		}
		// Lockout window elapsed
		if err := conn.Model(&user).Updates(map[string]interface{}{
			"is_active":             true,
			"failed_login_attempts": 0,
			"lockout_end":           nil,
		}).Error; err != nil {
			return nil, nil, persistenceFailure(err, "Failed to reactivate account")
		}
		user.IsActive = true
		user.FailedLoginAttempts = 0
		user.LockoutEnd = nil
		LogSecurityEvent("ACCOUNT_REACTIVATED", user.PoliceID, "Lockout window elapsed")
	}

	if !CheckPassword(passcode, user.PasscodeHash) {
		events, err := s.recordFailedLogin(conn, &user, now)
		return nil, events, err
	}

	if err := conn.Model(&user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"lockout_end":           nil,
		"last_login":            now,
	}).Error; err != nil {
		return nil, nil, persistenceFailure(err, "Failed to record login")
	}
	user.FailedLoginAttempts = 0
	user.LastLogin = &now

	token, expiresAt, err := GenerateToken(s.Tokens, &user)
	if err != nil {
		return nil, nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	LogSecurityEvent("LOGIN_SUCCESS", user.PoliceID, "")
	return &AuthResult{
		Token:                token,
		ExpiresAt:            expiresAt,
		User:                 &user,
		RequirePasswordReset: user.RequirePasswordReset,
	}, nil, nil
}

func (s *AuthService) recordFailedLogin(conn *gorm.DB, user *models.User, now time.Time) ([]Event, error) {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}

	locked := s.MaxFailedLogins > 0 && attempts >= s.MaxFailedLogins
	if locked {
		lockoutEnd := now.Add(s.LockoutDuration)
		updates["is_active"] = false
		updates["lockout_end"] = lockoutEnd
	}
	if err := conn.Model(user).Updates(updates).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to record login attempt")
	}

	if !locked {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		LogSecurityEvent("LOGIN_FAILED", user.PoliceID, fmt.Sprintf("Attempt %d", attempts))
		return nil, newServiceError(ErrUnauthorized, nil, "Invalid credentials")
	}

	metrics.AuthAttempts.WithLabelValues("locked").Inc()
	metrics.AccountLockouts.Inc()
	LogSecurityEvent("ACCOUNT_LOCKED", user.PoliceID, fmt.Sprintf("Locked after %d failed attempts", attempts))
	events := []Event{AccountLocked{
		Email:          user.Email,
		FirstName:      user.FirstName,
		LockoutMinutes: int(s.LockoutDuration / time.Minute),
	}}
	return events, newServiceError(ErrLocked, nil, "Account locked after %d failed attempts", attempts)
}

// ChangePasscode replaces the passcode after verifying the current one
func (s *AuthService) ChangePasscode(ctx context.Context, policeID, current, next string) ([]Event, error) {
	conn := s.DB.WithContext(ctx)

	var user models.User
	if err := conn.Where("police_id = ?", policeID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User %s not found", policeID)
		}
		return nil, persistenceFailure(err, "Failed to load user")
	}
	if !CheckPassword(current, user.PasscodeHash) {
		LogSecurityEvent("PASSCODE_CHANGE_FAILED", policeID, "Current passcode mismatch")
		return nil, newServiceError(ErrUnauthorized, nil, "Current passcode is incorrect")
	}
	if current == next {
		return nil, validationFailure("New passcode must differ from the current one")
	}
	if err := validatePasscodeFor(&user, next); err != nil {
		return nil, err
	}

	hash, err := HashPassword(next)
	if err != nil {
		return nil, err
	}
	if err := conn.Model(&user).Updates(map[string]interface{}{
		"passcode_hash":          hash,
		"require_password_reset": false,
		"last_password_change":   s.clock(),
	}).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to change passcode")
	}

	LogSecurityEvent("PASSCODE_CHANGED", policeID, "")
	return []Event{PasscodeChanged{Email: user.Email, FirstName: user.FirstName}}, nil
}

// UnlockAccount clears the lockout of an account. Admin only.
func (s *AuthService) UnlockAccount(ctx context.Context, policeID string, actor Actor) ([]Event, error) {
	if !actor.IsAdmin() {
		return nil, newServiceError(ErrForbidden, nil, "Only administrators can unlock accounts")
	}

	conn := s.DB.WithContext(ctx)
	var user models.User
	if err := conn.Where("police_id = ?", policeID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User %s not found", policeID)
		}
		return nil, persistenceFailure(err, "Failed to load user")
	}

	if err := conn.Model(&user).Updates(map[string]interface{}{
		"is_active":             true,
		"failed_login_attempts": 0,
		"lockout_end":           nil,
	}).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to unlock account")
	}

	LogSecurityEvent("ACCOUNT_UNLOCKED", policeID, fmt.Sprintf("Unlocked by %s", actor.PoliceID))
	return []Event{AccountUnlocked{Email: user.Email, FirstName: user.FirstName}}, nil
}

// ForgotPassword issues a reset token. Unknown emails succeed without events.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) ([]Event, error) {
	token, user, err := GenerateResetToken(s.DB.WithContext(ctx), email)
	if err != nil {
		return nil, persistenceFailure(err, "Failed to create reset token")
	}
	if token == nil {
		return nil, nil
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimSuffix(s.AppURL, "/"), token.Token)
	return []Event{PasswordResetRequested{
		Email:     user.Email,
		FirstName: user.FirstName,
		ResetLink: link,
		ExpiresAt: token.ExpiresAt,
	}}, nil
}

// ResetPassword consumes a reset token and sets the new passcode
func (s *AuthService) ResetPassword(ctx context.Context, token, newPasscode string) ([]Event, error) {
	user, err := ResetPassword(s.DB.WithContext(ctx), token, newPasscode)
	if err != nil {
		return nil, err
	}
	return []Event{PasscodeChanged{Email: user.Email, FirstName: user.FirstName}}, nil
}

// UserInfo returns the account behind a police id
func (s *AuthService) UserInfo(ctx context.Context, policeID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("police_id = ?", policeID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User %s not found", policeID)
		}
		return nil, persistenceFailure(err, "Failed to load user")
	}
	return &user, nil
}
