package auth

import (
	"testing"
	"time"

	"yamdb/internal/entity"
)

func TestNewManagerAndTokenLifecycle(t *testing.T) {
	mgr, err := NewManager("test-secret", "issuer", time.Minute*30)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	user := &entity.DbUser{ID: 42, Username: "bob", Role: entity.UserRoleAdmin}
	token, expiresAt, err := mgr.GenerateToken(user)
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected future expiry time")
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %d, got %d", user.ID, claims.UserID)
	}
	if claims.Username != user.Username {
		t.Fatalf("expected username %s, got %s", user.Username, claims.Username)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("   ", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer, _ := NewManager("secret-a", "yamdb", time.Hour)
	verifier, _ := NewManager("secret-b", "yamdb", time.Hour)

	token, _, err := issuer.GenerateToken(&entity.DbUser{ID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}

func TestParseTokenRejectsOtherIssuer(t *testing.T) {
	a, _ := NewManager("secret", "issuer-a", time.Hour)
	b, _ := NewManager("secret", "issuer-b", time.Hour)

	token, _, err := a.GenerateToken(&entity.DbUser{ID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if _, err := b.ParseToken(token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestGenerateTokenRequiresPersistedUser(t *testing.T) {
	mgr, _ := NewManager("secret", "", time.Hour)
	if _, _, err := mgr.GenerateToken(&entity.DbUser{Username: "ghost"}); err == nil {
		t.Fatal("expected error for user without id")
	}
}
