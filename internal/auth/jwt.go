// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/altracloud/altrachat/internal/domain"
)

// SessionTTL is how long a session cookie stays valid.
const SessionTTL = 24 * time.Hour

// SessionClaims carry the signed-in identity inside the session cookie.
type SessionClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a session token for the identity.
func GenerateSessionToken(identity domain.UserIdentity, secretKey []byte, now time.Time) (string, error) {
	if err := identity.IsValid(); err != nil {
		return "", err
	}
	if len(secretKey) == 0 {
		return "", errors.New("session secret is not configured")
	}

	claims := SessionClaims{
		Name:    identity.DisplayName,
		Email:   identity.Email,
		Picture: identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ValidateSessionToken checks the signature and expiry and returns the identity.
func ValidateSessionToken(tokenString string, secretKey []byte) (domain.UserIdentity, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return domain.UserIdentity{}, err
	}
	if !token.Valid || claims.Subject == "" {
		return domain.UserIdentity{}, errors.New("invalid token")
	}

	return domain.UserIdentity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.Picture,
	}, nil
}
