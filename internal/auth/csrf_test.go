package auth

import (
	"testing"
	"time"
)

func TestCSRFGenerateAndValidate(t *testing.T) {
	store := NewCSRFTokenStore(30 * time.Minute)

	token, err := store.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() = %v, want nil", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	if !store.Validate("user-1", token) {
		t.Error("Validate with issued token = false, want true")
	}
	if store.Validate("user-1", "bogus") {
		t.Error("Validate with wrong token = true, want false")
	}
	if store.Validate("user-2", token) {
		t.Error("Validate with another user's ID = true, want false")
	}
}

func TestCSRFGenerateInvalidatesPriorToken(t *testing.T) {
	store := NewCSRFTokenStore(30 * time.Minute)

	first, _ := store.Generate("user-1")
	second, _ := store.Generate("user-1")

	if store.Validate("user-1", first) {
		t.Error("first token still valid after regeneration")
	}
	if !store.Validate("user-1", second) {
		t.Error("latest token = invalid, want valid")
	}
}

func TestCSRFDelete(t *testing.T) {
	store := NewCSRFTokenStore(30 * time.Minute)

	token, _ := store.Generate("user-1")
	store.Delete("user-1")

	if store.Validate("user-1", token) {
		t.Error("token valid after Delete, want invalid")
	}
}

func TestCSRFExpiry(t *testing.T) {
	store := NewCSRFTokenStore(1 * time.Nanosecond)

	token, _ := store.Generate("user-1")
	time.Sleep(1 * time.Millisecond)

	if store.Validate("user-1", token) {
		t.Error("expired token validated, want invalid")
	}
}

func TestSessionTokenGeneration(t *testing.T) {
	a, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken() = %v, want nil", err)
	}
	b, _ := GenerateSessionToken()

	if len(a) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Error("two generated tokens are identical")
	}
	if HashSessionToken(a) == a {
		t.Error("hash equals token")
	}
	if HashSessionToken(a) != HashSessionToken(a) {
		t.Error("hash is not deterministic")
	}
}
