package services

import (
	"fmt"
	"time"

	"case_relay_go/config"
	"case_relay_go/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig holds the signing parameters for access tokens
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
}

func TokenConfigFrom(cfg *config.Config) TokenConfig {
	return TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Expiry:   time.Duration(cfg.JWTExpiryHours) * time.Hour,
	}
}

// Claims carried by an access token. The subject is the police id.
type Claims struct {
	UserID     uint   `json:"userId"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Name       string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 access token for the user
func GenerateToken(tc TokenConfig, user *models.User) (string, time.Time, error) {
	now := time.Now()
	expireAt := now.Add(tc.Expiry)

	department := ""
	if user.Department != nil {
		department = *user.Department
	}
	claims := &Claims{
		UserID:     user.ID,
		Role:       user.Role,
		Department: department,
		Name:       user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.PoliceID,
			Issuer:    tc.Issuer,
			Audience:  jwt.ClaimStrings{tc.Audience},
			ExpiresAt: jwt.NewNumericDate(expireAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(tc.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenStr, expireAt, nil
}

// ParseToken validates signature, expiry, issuer and audience
func ParseToken(tc TokenConfig, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(tc.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tc.Issuer),
		jwt.WithAudience(tc.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
