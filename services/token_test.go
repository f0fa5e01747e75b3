package services

import (
	"testing"
	"time"

	"case_relay_go/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:   "test-secret-that-is-long-enough-32b",
		Issuer:   "caserelay",
		Audience: "caserelay-clients",
		Expiry:   time.Hour,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	tc := testTokenConfig()
	department := "Homicide"
	user := &models.User{ID: 7, PoliceID: "P1001", FirstName: "Dana", LastName: "Reyes", Role: models.RoleSupervisor, Department: &department}

	tokenStr, expiresAt, err := GenerateToken(tc, user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ParseToken(tc, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "P1001", claims.Subject)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleSupervisor, claims.Role)
	assert.Equal(t, "Homicide", claims.Department)
	assert.Equal(t, "Dana Reyes", claims.Name)
}

func TestParseToken_Rejections(t *testing.T) {
	tc := testTokenConfig()
	user := &models.User{ID: 1, PoliceID: "P1001", Role: models.RoleOfficer}

	t.Run("Wrong secret", func(t *testing.T) {
		tokenStr, _, err := GenerateToken(tc, user)
		require.NoError(t, err)
		other := tc
		other.Secret = "a-different-secret-of-enough-length"
		_, err = ParseToken(other, tokenStr)
		assert.Error(t, err)
	})

	t.Run("Wrong audience", func(t *testing.T) {
		tokenStr, _, err := GenerateToken(tc, user)
		require.NoError(t, err)
		other := tc
		other.Audience = "someone-else"
		_, err = ParseToken(other, tokenStr)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := tc
		expired.Expiry = -time.Minute
		tokenStr, _, err := GenerateToken(expired, user)
		require.NoError(t, err)
		_, err = ParseToken(tc, tokenStr)
		assert.Error(t, err)
	})

	t.Run("Unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "P1001",
				Issuer:    tc.Issuer,
				Audience:  jwt.ClaimStrings{tc.Audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tokenStr, err := token.SignedString([]byte(tc.Secret))
		require.NoError(t, err)
		_, err = ParseToken(tc, tokenStr)
		assert.Error(t, err)
	})
}
