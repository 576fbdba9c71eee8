package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lease-service/pkg/config"
)

var (
	secret     []byte
	expiration time.Duration
)

// UserClaims represents the JWT claims for an authenticated actor.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Initialize configures the signing key from the application config.
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	expiration = cfg.ExpirationTime
}

// GenerateToken issues a signed token for the given actor.
func GenerateToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
