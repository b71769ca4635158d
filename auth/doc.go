// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides user key generation and role checks.

# User Keys

User keys use HMAC-SHA256 over the profile ID:

	userKey := auth.GenerateUserKey(userID, salt)
	err := auth.ValidateUserKey(userID, userKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same profile ID and salt always produce the same key, so validation needs
no stored secret. Clients send it as X-User-ID plus X-User-Key.

# Roles

	err := auth.Authorize(profile.Role, models.RoleCoordinator, models.RoleAdmin)

Authorize returns ErrForbidden when the role is not listed.
*/
package auth
