package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	UserId   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// ParseUnverified reads the claims of a token issued by the POS API. The
// register never holds the signing key, so the signature is not checked; the
// API verifies it on every call.
func ParseUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" && claims.Username == "" {
		return nil, errors.New("Invalid Token")
	}
	return claims, nil
}

// Expiry returns the token expiry, or the zero time when none is set.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Name prefers the subject, as issued by the API, over the username claim.
func (c *Claims) Name() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}

// GenerateToken signs a token with secret. Used by tests and local stubs
// that stand in for the POS API.
func GenerateToken(secret []byte, userID int64, username string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &Claims{
		UserId:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   username,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}
