package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the claims the platform puts into access tokens
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the user id carried by the token, falling back to the
// subject claim
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ParseClaims reads the claims of a bearer token without verifying its
// signature. The signing key lives with the issuer; the client only needs to
// know who it is and whether the token is still usable.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired at %s: %w", claims.ExpiresAt.Format(time.RFC3339), jwt.ErrTokenExpired)
	}

	if claims.Identity() == "" {
		return nil, fmt.Errorf("token carries no user id")
	}

	return claims, nil
}
