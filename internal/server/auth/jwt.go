// Package auth implements the credential primitives: bcrypt password hashing
// and stateless HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenValidity is how long an issued token stays valid.
const DefaultTokenValidity = 48 * time.Hour

// Claims is the signed claim set. The subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// GenerateToken signs a token for userID. Every call gets a fresh jti, so two
// tokens for the same user never compare equal.
func GenerateToken(userID, email string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the claims.
//
// Errors: common.ErrMalformedToken when the string cannot be decoded,
// common.ErrTokenExpired after expiry, common.ErrInvalidToken for everything
// else (bad signature, unexpected algorithm, missing subject).
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, common.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// GetUserIDFromToken is ParseToken reduced to the subject.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}
