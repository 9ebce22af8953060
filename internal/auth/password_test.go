// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()

	// MinCost keeps the test suite fast; production uses cost 12.
	hasher, err := NewPasswordHasher(bcrypt.MinCost, 10)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	return hasher
}

func TestNewPasswordHasherRejectsInvalidCost(t *testing.T) {
	if _, err := NewPasswordHasher(bcrypt.MaxCost+1, 10); err == nil {
		t.Error("expected error for cost above maximum")
	}
	if _, err := NewPasswordHasher(bcrypt.MinCost-1, 10); err == nil {
		t.Error("expected error for cost below minimum")
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := newTestHasher(t)

	digest, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !strings.HasPrefix(digest, "$2") {
		t.Errorf("digest %q does not look like bcrypt", digest)
	}
	if !hasher.Verify("correct-horse-battery", digest) {
		t.Error("correct password rejected")
	}
	if hasher.Verify("wrong-password-attempt", digest) {
		t.Error("wrong password accepted")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher := newTestHasher(t)

	_, err := hasher.Hash("short")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("Hash error = %v, want ErrPasswordTooShort", err)
	}
}

func TestHashSaltsDigests(t *testing.T) {
	hasher := newTestHasher(t)

	first, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical, salting is broken")
	}
}

func TestVerifyGarbageDigest(t *testing.T) {
	hasher := newTestHasher(t)

	if hasher.Verify("correct-horse-battery", "not-a-bcrypt-digest") {
		t.Error("garbage digest verified")
	}
	if hasher.Verify("correct-horse-battery", "") {
		t.Error("empty digest verified")
	}
}
