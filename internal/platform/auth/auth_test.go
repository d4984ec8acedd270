package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"attendr/internal/platform/config"
)

func testTokenService(ttl time.Duration) *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: time.Hour,
	})
}

func TestTokenService_AccessToken(t *testing.T) {
	svc := testTokenService(time.Minute)

	token, err := svc.GenerateAccessToken("u1", "admin", "a@lisfa.edu")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "admin" || claims.Email != "a@lisfa.edu" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := testTokenService(time.Minute)

	expired, _ := testTokenService(-time.Minute).GenerateAccessToken("u1", "admin", "a@lisfa.edu")
	other, _ := NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Minute}).GenerateAccessToken("u1", "admin", "a@lisfa.edu")
	refresh, _ := svc.GenerateRefreshToken("u1")

	tests := map[string]string{
		"expired":       expired,
		"wrong secret":  other,
		"garbage":       "not.a.token",
		"refresh token": refresh,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateToken(token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTokenService_RefreshToken(t *testing.T) {
	svc := testTokenService(time.Minute)

	token, err := svc.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	userID, err := svc.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken() error = %v", err)
	}
	if userID != "u1" {
		t.Errorf("userID = %q, want u1", userID)
	}

	access, _ := svc.GenerateAccessToken("u1", "admin", "a@lisfa.edu")
	if _, err := svc.ValidateRefreshToken(access); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestVerifyPassword(t *testing.T) {
	bcryptHash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	sum := sha256.Sum256([]byte("secret123" + "abcd"))
	legacy := "abcd$" + hex.EncodeToString(sum[:])

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"bcrypt ok", "secret123", bcryptHash, true},
		{"bcrypt wrong", "nope", bcryptHash, false},
		{"legacy ok", "secret123", legacy, true},
		{"legacy wrong", "nope", legacy, false},
		{"empty hash", "secret123", "", false},
		{"no separator", "secret123", "plaintext", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}

	if NeedsRehash(bcryptHash) || !NeedsRehash(legacy) {
		t.Error("NeedsRehash misclassified hashes")
	}
}
