// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateUserKey(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		salt   string
	}{
		{"standard", "user123", "secret-salt"},
		{"empty user id", "", "salt"},
		{"empty salt", "user456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateUserKey(tt.userID, tt.salt)

			// Should not be empty
			if key == "" {
				t.Error("GenerateUserKey() returned empty string")
			}

			// Should be deterministic
			key2 := GenerateUserKey(tt.userID, tt.salt)
			if key != key2 {
				t.Error("GenerateUserKey() is not deterministic")
			}

			// Different inputs should produce different keys
			if tt.userID != "" && tt.salt != "" {
				differentKey := GenerateUserKey(tt.userID+"x", tt.salt)
				if key == differentKey {
					t.Error("GenerateUserKey() produced same key for different user IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateUserKey() contains padding characters")
			}
		})
	}
}

func TestValidateUserKey(t *testing.T) {
	userID := "test-user-123"
	salt := "test-salt"
	validKey := GenerateUserKey(userID, salt)

	tests := []struct {
		name    string
		userID  string
		userKey string
		salt    string
		wantErr bool
	}{
		{"valid key", userID, validKey, salt, false},
		{"wrong key", userID, "wrong-key", salt, true},
		{"wrong user id", "different-user", validKey, salt, true},
		{"wrong salt", userID, validKey, "different-salt", true},
		{"empty key", userID, "", salt, true},
		{"empty user id", "", validKey, salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserKey(tt.userID, tt.userKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidUserKey {
				t.Errorf("ValidateUserKey() error = %v, want %v", err, ErrInvalidUserKey)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		wantErr bool
	}{
		{"no restriction", "student", nil, false},
		{"listed role", "coordinator", []string{"coordinator", "admin"}, false},
		{"unlisted role", "student", []string{"coordinator", "admin"}, true},
		{"empty role", "", []string{"driver"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.role, tt.allowed...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
