// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrInvalidUserKey = errors.New("invalid user key")
	ErrForbidden      = errors.New("role not permitted")
)

// GenerateUserKey creates an HMAC-based key for a profile.
// This is deterministic and verifiable without storing the key.
func GenerateUserKey(userID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(userID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateUserKey checks if the provided key is valid for the profile
func ValidateUserKey(userID, userKey, salt string) error {
	if userID == "" || userKey == "" {
		return ErrInvalidUserKey
	}
	expected := GenerateUserKey(userID, salt)
	if !hmac.Equal([]byte(userKey), []byte(expected)) {
		return ErrInvalidUserKey
	}
	return nil
}

// Authorize returns ErrForbidden unless role is one of allowed.
// An empty allowed list permits every role.
func Authorize(role string, allowed ...string) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return ErrForbidden
}
