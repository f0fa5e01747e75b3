package services

import (
	"strings"
	"testing"

	"case_relay_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasscode(t *testing.T) {
	tests := []struct {
		name        string
		passcode    string
		identifiers []string
		errMsg      string
	}{
		{name: "Valid complex passcode", passcode: "Admin@123"},
		{name: "Too short", passcode: "Ab1!", errMsg: "at least 8 characters"},
		{name: "Too long for bcrypt", passcode: "Aa1!" + strings.Repeat("x", 69), errMsg: "cannot exceed 72 bytes"},
		{name: "Missing uppercase", passcode: "lowercase123!", errMsg: "uppercase letter"},
		{name: "Missing lowercase", passcode: "UPPERCASE123!", errMsg: "lowercase letter"},
		{name: "Missing number", passcode: "NoNumberPass!", errMsg: "one number"},
		{name: "Missing special char", passcode: "NoSpecialChar123", errMsg: "special character"},
		{name: "Contains police id", passcode: "Pd1234!secure", identifiers: []string{"PD1234"}, errMsg: "police ID"},
		{name: "Contains email name", passcode: "Dana.Reyes#1", identifiers: []string{"P1", "dana.reyes"}, errMsg: "police ID"},
		{name: "Short identifiers are ignored", passcode: "Str0ng!P1ass", identifiers: []string{"P1", " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasscode(tt.passcode, tt.identifiers...)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, Reason(err, ""), tt.errMsg)
		})
	}
}

func TestValidatePasscodeFor(t *testing.T) {
	badge := "B-7781"
	user := &models.User{PoliceID: "PD4410", Email: "m.okafor@caserelay.test", BadgeNumber: &badge}

	require.NoError(t, validatePasscodeFor(user, "Harbor!Watch9"))
	assert.ErrorIs(t, validatePasscodeFor(user, "xB-7781!aZ"), ErrValidation)
	assert.ErrorIs(t, validatePasscodeFor(user, "M.Okafor!2026"), ErrValidation)
	assert.ErrorIs(t, validatePasscodeFor(user, "pd4410!Zz"), ErrValidation)
}
