// Package auth issues and verifies the signed identity tokens that carry a
// request's user id, admin flag and personal-folder-unlock flag.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/teamvault/teamvault/internal/common"
)

// Identity is the verified content of a token. IsAdmin is a point-in-time
// snapshot taken at issuance; revoking Admins membership does not invalidate
// tokens already in flight.
type Identity struct {
	UserID           string
	IsAdmin          bool
	PersonalUnlocked bool
}

// Claims extends the registered JWT claims with the identity fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID           string `json:"uid"`
	IsAdmin          bool   `json:"adm"`
	PersonalUnlocked bool   `json:"pfu"`
}

// Issue signs a bearer token for the given identity with the given lifetime.
func Issue(userID string, isAdmin, personalUnlocked bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:           userID,
		IsAdmin:          isAdmin,
		PersonalUnlocked: personalUnlocked,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify parses and validates a token, returning the embedded identity.
// An expired token maps to common.ErrTokenExpired; every other failure maps
// to common.ErrInvalidToken.
func Verify(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		UserID:           claims.UserID,
		IsAdmin:          claims.IsAdmin,
		PersonalUnlocked: claims.PersonalUnlocked,
	}, nil
}
