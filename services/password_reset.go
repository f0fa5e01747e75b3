package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"case_relay_go/db"
	"case_relay_go/models"

	"gorm.io/gorm"
)

const (
	// ResetTokenLength is the length of the reset token in bytes
	ResetTokenLength = 32
	// ResetTokenExpiration is how long a reset token is valid
	ResetTokenExpiration = 24 * time.Hour
)

// GenerateResetToken creates a reset token for the user with that email.
// Unknown emails return (nil, nil) so callers cannot discover which accounts exist.
func GenerateResetToken(conn *gorm.DB, userEmail string) (*models.PasswordResetToken, *models.User, error) {
	var user models.User
	if err := conn.Where("email = ?", strings.ToLower(strings.TrimSpace(userEmail))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Password reset requested for non-existent email: %s", userEmail)
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	tokenBytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to generate random token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     base64.URLEncoding.EncodeToString(tokenBytes),
		ExpiresAt: time.Now().Add(ResetTokenExpiration),
	}

	// One live token per user
	err := db.WithTransaction(conn, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to clear reset tokens: %w", err)
		}
		if err := tx.Create(resetToken).Error; err != nil {
			return fmt.Errorf("failed to create reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	LogSecurityEvent("PASSWORD_RESET_REQUESTED", user.PoliceID, fmt.Sprintf("Password reset requested for email: %s", user.Email))
	return resetToken, &user, nil
}

// ValidateResetToken returns the user that owns a live token
func ValidateResetToken(conn *gorm.DB, token string) (*models.User, error) {
	var resetToken models.PasswordResetToken
	if err := conn.Preload("User").Where("token = ?", token).First(&resetToken).Error; err != nil {
		return nil, fmt.Errorf("invalid or expired token")
	}

	if resetToken.IsExpired() {
		conn.Delete(&resetToken)
		return nil, fmt.Errorf("token has expired")
	}
	if resetToken.User == nil {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return resetToken.User, nil
}

// ResetPassword sets a new passcode with a valid token. The token is consumed
// and any lockout is cleared.
func ResetPassword(conn *gorm.DB, token string, newPassword string) (*models.User, error) {
	if err := ValidatePasscode(newPassword); err != nil {
		return nil, err
	}

	user, err := ValidateResetToken(conn, token)
	if err != nil {
		LogSecurityEvent("PASSWORD_RESET_FAILED", "", fmt.Sprintf("Failed password reset attempt with token prefix: %s", tokenPrefix(token)))
		return nil, validationFailure("%s", err.Error())
	}
	if err := validatePasscodeFor(user, newPassword); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = db.WithTransaction(conn, func(tx *gorm.DB) error {
		err := tx.Model(user).Updates(map[string]interface{}{
			"passcode_hash":          hashedPassword,
			"is_active":              true,
			"failed_login_attempts":  0,
			"lockout_end":            nil,
			"require_password_reset": false,
			"last_password_change":   now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update passcode: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceFailure(err, "Failed to reset passcode")
	}

	LogSecurityEvent("PASSWORD_RESET_COMPLETED", user.PoliceID, "Passcode successfully reset")
	return user, nil
}

// CleanupExpiredTokens deletes all expired password reset tokens
func CleanupExpiredTokens(conn *gorm.DB) error {
	result := conn.Where("expires_at < ?", time.Now()).Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired password reset tokens", result.RowsAffected)
	}
	return nil
}

func tokenPrefix(token string) string {
	if len(token) > 10 {
		return token[:10]
	}
	return token
}
