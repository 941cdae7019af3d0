package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func TestParseClaims(t *testing.T) {
	token := signToken(t, Claims{
		UserID: "user-1",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.Identity() != "user-1" {
		t.Errorf("Expected userID user-1, got %s", claims.Identity())
	}
}

func TestParseClaims_SubjectFallback(t *testing.T) {
	token := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2"}})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.Identity() != "user-2" {
		t.Errorf("Expected subject fallback user-2, got %s", claims.Identity())
	}
}

func TestParseClaims_Invalid(t *testing.T) {
	_, err := ParseClaims("invalid.token.here")
	if err == nil {
		t.Fatal("Expected error for invalid token")
	}
}

func TestParseClaims_Expired(t *testing.T) {
	token := signToken(t, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := ParseClaims(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("Expected expired error, got %v", err)
	}
}

func TestParseClaims_NoIdentity(t *testing.T) {
	token := signToken(t, Claims{Email: "test@example.com"})

	if _, err := ParseClaims(token); err == nil {
		t.Fatal("Expected error for token without user id")
	}
}

func TestFileTokenStore(t *testing.T) {
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}

	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Expected ErrNoToken for missing file, got %v", err)
	}

	if err := store.Save("abc.def.ghi"); err != nil {
		t.Fatalf("Failed to save token: %v", err)
	}

	token, err := store.Token()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "abc.def.ghi" {
		t.Errorf("Expected trimmed token, got %q", token)
	}
}

func TestFileTokenStoreLogin(t *testing.T) {
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}

	if _, err := store.Login("not-a-token"); err == nil {
		t.Fatal("Expected error for malformed token")
	}
	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Expected nothing stored after a rejected login, got %v", err)
	}

	token := signToken(t, Claims{
		UserID: "admin-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := store.Login(" " + token + "\n")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.Identity() != "admin-1" {
		t.Errorf("Expected admin-1, got %q", claims.Identity())
	}

	stored, err := store.Token()
	if err != nil {
		t.Fatalf("Expected stored token, got %v", err)
	}
	if stored != token {
		t.Errorf("Stored token does not match")
	}
}

func TestEnvTokenStore(t *testing.T) {
	t.Setenv("CHAT_TOKEN_TEST", " tok ")

	token, err := EnvTokenStore{Key: "CHAT_TOKEN_TEST"}.Token()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "tok" {
		t.Errorf("Expected tok, got %q", token)
	}

	if _, err := (EnvTokenStore{Key: "CHAT_TOKEN_UNSET_TEST"}).Token(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}
