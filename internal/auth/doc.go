// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package auth implements the Reelist trust boundary: bearer tokens for the
// REST API, admin sessions with CSRF protection, bcrypt credential hashing,
// and per-address brute-force lockout.
//
// The components compose bottom-up. TokenService and PasswordHasher are
// stateless leaves. Guard tracks failed attempts in an injected counter
// store. Manager orchestrates admin login (lockout check, credential check,
// session establishment) and the CSRF token lifecycle.
//
// Verification failures on bearer tokens deliberately collapse into a single
// ErrTokenInvalid: the API boundary must not reveal whether a token was
// malformed, forged or merely expired. Lockout is the one distinguishable
// rejection because it carries retry-after semantics and does not leak
// credential validity.
package auth
