package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret-do-not-use")

func TestIssueAndParseRoundTrip(t *testing.T) {
	token, err := IssueAccessToken(testSecret, "usr_1", "Mele Kalikimaka", "designer", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseAccessToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "usr_1" {
		t.Errorf("subject = %q, want usr_1", claims.Subject)
	}
	if claims.Role != "designer" {
		t.Errorf("role = %q, want designer", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := IssueAccessToken(testSecret, "usr_1", "n", "client", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseAccessToken([]byte("other-secret"), token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := IssueAccessToken(testSecret, "usr_1", "n", "client", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseAccessToken(testSecret, token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ParseAccessToken(testSecret, "not.a.token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	token := NewRefreshToken()
	if len(token) != 64 {
		t.Fatalf("refresh token length = %d, want 64 hex chars", len(token))
	}
	if HashToken(token) != HashToken(token) {
		t.Error("hash should be deterministic")
	}
	if HashToken(token) == token {
		t.Error("hash should differ from the token")
	}
}
