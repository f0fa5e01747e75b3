package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"case_relay_go/models"
)

// Passcode requirements
const (
	MinPasscodeLength = 8
	// bcrypt only hashes the first 72 bytes
	MaxPasscodeLength = 72

	minIdentifierLength = 3
)

// ValidatePasscode checks complexity and rejects passcodes that embed one of
// the given account identifiers, compared case-insensitively. Identifiers
// shorter than three characters are ignored.
func ValidatePasscode(passcode string, identifiers ...string) error {
	if utf8.RuneCountInString(passcode) < MinPasscodeLength {
		return validationFailure("Passcode must be at least %d characters long", MinPasscodeLength)
	}
	if len(passcode) > MaxPasscodeLength {
		return validationFailure("Passcode cannot exceed %d bytes", MaxPasscodeLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range passcode {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return validationFailure("Passcode must contain at least one uppercase letter")
	case !hasLower:
		return validationFailure("Passcode must contain at least one lowercase letter")
	case !hasNumber:
		return validationFailure("Passcode must contain at least one number")
	case !hasSpecial:
		return validationFailure("Passcode must contain at least one special character")
	}

	lowered := strings.ToLower(passcode)
	for _, id := range identifiers {
		id = strings.ToLower(strings.TrimSpace(id))
		if len(id) >= minIdentifierLength && strings.Contains(lowered, id) {
			return validationFailure("Passcode cannot contain your police ID, badge number or email name")
		}
	}
	return nil
}

// passcodeIdentifiers lists the account values a passcode may not contain
func passcodeIdentifiers(policeID, email string, badgeNumber *string) []string {
	ids := []string{policeID}
	if local, _, ok := strings.Cut(strings.TrimSpace(email), "@"); ok {
		ids = append(ids, local)
	}
	if badgeNumber != nil {
		ids = append(ids, *badgeNumber)
	}
	return ids
}

// validatePasscodeFor applies the policy against an existing account
func validatePasscodeFor(user *models.User, passcode string) error {
	return ValidatePasscode(passcode, passcodeIdentifiers(user.PoliceID, user.Email, user.BadgeNumber)...)
}
