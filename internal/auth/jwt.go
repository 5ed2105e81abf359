package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
)

const tokenValidity = 8 * time.Hour

// Principal is the authenticated identity decoded from a bearer token.
type Principal struct {
	UserID uint
	Role   string
}

// TokenManager signs and verifies HS256 bearer tokens against a shared
// secret fixed at startup.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

func (m *TokenManager) Generate(userID uint, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(tokenValidity).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) Verify(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})

	if err != nil || !token.Valid {
		return Principal{}, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return Principal{}, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid user ID in token claims")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return Principal{}, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid role in token claims")
	}

	return Principal{UserID: uint(userIDFloat), Role: role}, nil
}
