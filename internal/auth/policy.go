// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import "strings"

// StrongPasswordMinLength is the minimum length a password must have under
// the strong-password policy.
const StrongPasswordMinLength = 8

// strongPasswordSpecials is the set of special characters the strong-password
// policy accepts.
const strongPasswordSpecials = "!@#$&*"

// StrongPasswordHint is the user-facing description of the strong-password policy.
const StrongPasswordHint = "Password must be at least 8 characters and contain at least one number, " +
	"one uppercase letter, one lowercase letter, and one special character (!@#$&*)."

// IsStrongPassword reports whether a password satisfies the strong-password
// policy: at least 8 characters with at least one uppercase letter, one
// lowercase letter, one digit, and one special character from !@#$&*.
// The policy is only enforced when enabled in configuration; callers accept
// any non-empty password otherwise.
func IsStrongPassword(password string) bool {
	if len(password) < StrongPasswordMinLength {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(strongPasswordSpecials, r):
			special = true
		}
	}

	return upper && lower && digit && special
}
