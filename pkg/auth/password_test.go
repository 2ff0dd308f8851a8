package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("abc12345")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}
	if hash == "abc12345" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !IsHashed(hash) {
		t.Errorf("IsHashed(%q) = false, want true", hash)
	}

	if !VerifyPassword(hash, "abc12345") {
		t.Error("VerifyPassword with correct password = false, want true")
	}
	if VerifyPassword(hash, "ABC12345") {
		t.Error("VerifyPassword with wrong password = true, want false")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("HashPassword(\"\") = nil, want error")
	}
}

func TestVerifyPassword_LegacyPlaintext(t *testing.T) {
	// Stored value without the bcrypt prefix is compared directly
	if !VerifyPassword("abc12345", "abc12345") {
		t.Error("legacy plaintext match = false, want true")
	}
	if VerifyPassword("abc12345", "wrong") {
		t.Error("legacy plaintext mismatch = true, want false")
	}
	if VerifyPassword("", "") {
		t.Error("empty stored value must never verify")
	}
}

func TestIsHashed(t *testing.T) {
	tests := []struct {
		stored string
		want   bool
	}{
		{"$2a$10$abcdefghijklmnopqrstuv", true},
		{"$2b$10$abcdefghijklmnopqrstuv", true},
		{"$2y$10$abcdefghijklmnopqrstuv", true},
		{"abc12345", false},
		{"", false},
		{"$1$legacy-md5", false},
	}

	for _, tt := range tests {
		if got := IsHashed(tt.stored); got != tt.want {
			t.Errorf("IsHashed(%q) = %v, want %v", tt.stored, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid lowercase plus digit",
			password:   "abc12345",
			shouldFail: false,
		},
		{
			name:       "valid mixed",
			password:   "Garden2025",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "ab1",
			shouldFail: true,
		},
		{
			name:       "missing digit",
			password:   "abcdefgh",
			shouldFail: true,
		},
		{
			name:       "missing letter",
			password:   "12345678",
			shouldFail: true,
		},
		{
			name:       "too long",
			password:   strings.Repeat("a1", 65),
			shouldFail: true,
		},
		{
			name:       "common password rejected",
			password:   "password123",
			shouldFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail && err == nil {
				t.Errorf("ValidatePassword(%q) = nil, want error", tt.password)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil", tt.password, err)
			}
		})
	}
}
