package utils

import (
	"errors"
	"strings"
	"time"

	"philosofium/backend/config"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what a bearer credential resolves to.
type TokenClaims struct {
	UserID uint
	Role   string
}

func GenerateJWTToken(userID uint, role string, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseJWTToken validates signature and expiry and extracts the user id and role.
// A leading "Bearer " prefix is tolerated.
func ParseJWTToken(tokenString, secret string) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)

	return &TokenClaims{UserID: uint(userIDFloat), Role: role}, nil
}
