package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoToken = errors.New("no access token available")

// TokenSource supplies the bearer credential for gateway and API calls
type TokenSource interface {
	Token() (string, error)
}

// FileTokenStore reads the token from a file written by the login flow
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Token() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token with owner-only permissions
func (s FileTokenStore) Save(token string) error {
	if err := os.WriteFile(s.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Login checks that token identifies a user and stores it for later runs
func (s FileTokenStore) Login(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if err := s.Save(token); err != nil {
		return nil, err
	}
	return claims, nil
}

// EnvTokenStore reads the token from an environment variable
type EnvTokenStore struct {
	Key string
}

func (s EnvTokenStore) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(s.Key))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// StaticToken is a fixed token, mostly useful in tests
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// NewTokenSource prefers the token file when one is configured
func NewTokenSource(tokenFile, tokenEnv string) TokenSource {
	if tokenFile != "" {
		return FileTokenStore{Path: tokenFile}
	}
	return EnvTokenStore{Key: tokenEnv}
}

// BearerHeader formats the Authorization header value for a token
func BearerHeader(token string) string {
	return "Bearer " + token
}
