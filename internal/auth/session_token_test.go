package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	token, err := svc.Issue("session-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "session-123" {
		t.Fatalf("session id: %q", got)
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	issuer, _ := NewTokenService("secret-a", time.Hour)
	verifier, _ := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("session-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Millisecond)

	token, err := svc.Issue("session-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.Validate(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Hour)

	for _, bad := range []string{"", "not-a-jwt", strings.Repeat("a.", 3)} {
		if _, err := svc.Validate(bad); err == nil {
			t.Errorf("token %q: expected error", bad)
		}
	}
}

func TestNewTokenServiceValidation(t *testing.T) {
	if _, err := NewTokenService("  ", time.Hour); err == nil {
		t.Fatal("blank secret: expected error")
	}
	if _, err := NewTokenService("secret", 0); err == nil {
		t.Fatal("zero ttl: expected error")
	}
}
