// Package auth issues and verifies the HS256 access tokens carried by the
// agents on every API call.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldvault/internal/common"
)

// Claims carries the registered claims plus the authenticated operator.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string
}

// GenerateToken signs an access token for operatorID valid for
// validityDuration, and returns the token with its expiry time.
func GenerateToken(operatorID string, secretKey []byte, validityDuration time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OperatorID: operatorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// GetOperatorIDFromToken verifies the token signature and expiry and returns
// the operator it was issued to. Expired tokens map to
// common.ErrTokenExpired, everything else invalid to common.ErrInvalidToken.
func GetOperatorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.OperatorID, nil
}
