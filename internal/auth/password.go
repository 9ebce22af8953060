// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooShort is returned by Hash when the password is below the
// configured minimum length. Verify never returns it: length policy applies
// to new credentials only, so login behavior does not change when the
// policy is tightened.
var ErrPasswordTooShort = errors.New("password below minimum length")

// PasswordHasher hashes and verifies passwords with bcrypt.
// No custom cryptography: salting and work-factor handling are delegated
// to the library.
type PasswordHasher struct {
	cost      int
	minLength int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost and minimum
// password length policy.
func NewPasswordHasher(cost, minLength int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if minLength < 1 {
		return nil, fmt.Errorf("minimum password length must be positive")
	}

	return &PasswordHasher{cost: cost, minLength: minLength}, nil
}

// Hash returns the bcrypt digest of password, enforcing the length policy.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) < h.minLength {
		return "", fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, h.minLength)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(digest), nil
}

// Verify reports whether password matches digest.
// bcrypt.CompareHashAndPassword is timing-safe by design.
func (h *PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
